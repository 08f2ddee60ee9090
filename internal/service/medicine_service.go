package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

const medicineCacheTTL = 30 * time.Minute

type medicineRepository interface {
	Search(ctx context.Context, filter models.MedicineFilter) ([]models.Medicine, int, error)
	FindByID(ctx context.Context, id int64) (*models.Medicine, error)
}

type medicinePage struct {
	Items []models.Medicine `json:"items"`
	Total int               `json:"total"`
}

// MedicineService serves catalogue lookups, read-through cached in Redis.
type MedicineService struct {
	repo   medicineRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewMedicineService constructs a MedicineService. cache may be nil.
func NewMedicineService(repo medicineRepository, cache *CacheService, logger *zap.Logger) *MedicineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedicineService{repo: repo, cache: cache, logger: logger}
}

// Search returns a page of medicines matching the query. The bool reports a
// cache hit.
func (s *MedicineService) Search(ctx context.Context, filter models.MedicineFilter) ([]models.Medicine, *models.Pagination, bool, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	if len(filter.Query) > 100 {
		return nil, nil, false, appErrors.Clone(appErrors.ErrValidation, "query too long")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := fmt.Sprintf("search:%s:%d:%d", strings.ToLower(filter.Query), filter.Page, filter.PageSize)
	page, hit, err := Remember(ctx, s.cache, key, medicineCacheTTL, func(ctx context.Context) (medicinePage, error) {
		items, total, err := s.repo.Search(ctx, filter)
		return medicinePage{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, nil, false, appErrors.InternalMessage(err, "failed to search medicines")
	}

	return page.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: page.Total}, hit, nil
}

// Get returns a single medicine. The bool reports a cache hit.
func (s *MedicineService) Get(ctx context.Context, id int64) (*models.Medicine, bool, error) {
	medicine, hit, err := Remember(ctx, s.cache, fmt.Sprintf("id:%d", id), medicineCacheTTL, func(ctx context.Context) (*models.Medicine, error) {
		return s.repo.FindByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "medicine not found")
		}
		return nil, false, appErrors.InternalMessage(err, "failed to load medicine")
	}
	return medicine, hit, nil
}
