package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

type fakeMedicineSrv struct {
	hit        bool
	err        error
	lastFilter models.MedicineFilter
}

func (f *fakeMedicineSrv) Search(_ context.Context, filter models.MedicineFilter) ([]models.Medicine, *models.Pagination, bool, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, false, f.err
	}
	return []models.Medicine{{ID: 1, Name: "Panadol"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, f.hit, nil
}

func (f *fakeMedicineSrv) Get(_ context.Context, id int64) (*models.Medicine, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.Medicine{ID: id, Name: "Panadol"}, f.hit, nil
}

func TestMedicineHandlerSearchReportsCacheHit(t *testing.T) {
	srv := &fakeMedicineSrv{hit: true}
	handler := NewMedicineHandler(srv)
	c, rec := jsonContext(http.MethodGet, "/medicines?q=pan&page=3", nil)

	handler.Search(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pan", srv.lastFilter.Query)
	assert.Equal(t, 3, srv.lastFilter.Page)
	assert.Equal(t, true, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestMedicineHandlerGet(t *testing.T) {
	handler := NewMedicineHandler(&fakeMedicineSrv{})
	c, rec := jsonContext(http.MethodGet, "/medicines/4", nil)
	c.Params = gin.Params{{Key: "id", Value: "4"}}

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestMedicineHandlerErrors(t *testing.T) {
	handler := NewMedicineHandler(&fakeMedicineSrv{err: appErrors.Clone(appErrors.ErrValidation, "query too long")})

	c, rec := jsonContext(http.MethodGet, "/medicines?q=x", nil)
	handler.Search(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = jsonContext(http.MethodGet, "/medicines/0", nil)
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	handler.Get(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
