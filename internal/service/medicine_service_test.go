package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

type fakeMedicineRepo struct {
	items    []models.Medicine
	err      error
	searches int
	finds    int
}

func (f *fakeMedicineRepo) Search(_ context.Context, _ models.MedicineFilter) ([]models.Medicine, int, error) {
	f.searches++
	return f.items, len(f.items), f.err
}

func (f *fakeMedicineRepo) FindByID(_ context.Context, id int64) (*models.Medicine, error) {
	f.finds++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestMedicineServiceSearch(t *testing.T) {
	repo := &fakeMedicineRepo{items: []models.Medicine{{ID: 1, Name: "Panadol"}}}
	svc := NewMedicineService(repo, nil, nil)

	items, pagination, hit, err := svc.Search(context.Background(), models.MedicineFilter{Query: "pan", Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 1)
	assert.Equal(t, &models.Pagination{Page: 2, PageSize: 5, TotalCount: 1}, pagination)

	_, _, _, err = svc.Search(context.Background(), models.MedicineFilter{Query: strings.Repeat("a", 101)})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	repo.err = errors.New("db down")
	_, _, _, err = svc.Search(context.Background(), models.MedicineFilter{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestMedicineServiceReadThroughCache(t *testing.T) {
	repo := &fakeMedicineRepo{items: []models.Medicine{{ID: 1, Name: "Panadol", GenericName: "Paracetamol"}}}
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryOTPStore(), metrics, 0, nil, true)
	svc := NewMedicineService(repo, cache, nil)

	_, hit, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, hit)

	item, hit, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Paracetamol", item.GenericName)
	assert.Equal(t, 1, repo.finds)

	_, _, _, err = svc.Search(context.Background(), models.MedicineFilter{Query: "Pan"})
	require.NoError(t, err)
	_, _, hit, err = svc.Search(context.Background(), models.MedicineFilter{Query: " pan "})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.searches)
	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRatio, 0.001)
}

func TestMedicineServiceGetNotFound(t *testing.T) {
	svc := NewMedicineService(&fakeMedicineRepo{}, nil, nil)

	_, _, err := svc.Get(context.Background(), 2)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
