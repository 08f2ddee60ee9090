package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medichat-api/internal/middleware"
	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/pkg/response"
)

type medicineService interface {
	Search(ctx context.Context, filter models.MedicineFilter) ([]models.Medicine, *models.Pagination, bool, error)
	Get(ctx context.Context, id int64) (*models.Medicine, bool, error)
}

// MedicineHandler serves the medicine catalogue.
type MedicineHandler struct {
	service medicineService
}

// NewMedicineHandler constructs the handler.
func NewMedicineHandler(svc medicineService) *MedicineHandler {
	return &MedicineHandler{service: svc}
}

// Search godoc
// @Summary Search medicines
// @Tags Medicines
// @Produce json
// @Param q query string false "Name or generic name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /medicines [get]
func (h *MedicineHandler) Search(c *gin.Context) {
	filter := models.MedicineFilter{
		Query:    c.Query("q"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	items, pagination, hit, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get medicine
// @Tags Medicines
// @Produce json
// @Param id path int true "Medicine ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /medicines/{id} [get]
func (h *MedicineHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	medicine, hit, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, medicine, nil, middleware.ExtractMeta(c))
}
