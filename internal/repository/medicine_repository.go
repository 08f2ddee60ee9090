package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medichat-api/internal/models"
)

const medicineColumns = `id, name, generic_name, manufacturer, strength, dosage_form, description, prescription, updated_at`

// MedicineRepository provides read access to the medicine catalogue.
type MedicineRepository struct {
	db *sqlx.DB
}

// NewMedicineRepository creates a new instance of MedicineRepository.
func NewMedicineRepository(db *sqlx.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// Search matches brand or generic names case-insensitively.
func (r *MedicineRepository) Search(ctx context.Context, filter models.MedicineFilter) ([]models.Medicine, int, error) {
	baseQuery := `FROM medicines`
	var args []interface{}
	if q := strings.TrimSpace(filter.Query); q != "" {
		baseQuery += ` WHERE name ILIKE $1 OR generic_name ILIKE $1`
		args = append(args, "%"+q+"%")
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", medicineColumns, baseQuery, pageSize, offset)
	var medicines []models.Medicine
	if err := r.db.SelectContext(ctx, &medicines, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("search medicines: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count medicines: %w", err)
	}

	return medicines, total, nil
}

// FindByID returns one medicine or sql.ErrNoRows.
func (r *MedicineRepository) FindByID(ctx context.Context, id int64) (*models.Medicine, error) {
	const query = `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`
	var medicine models.Medicine
	if err := r.db.GetContext(ctx, &medicine, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find medicine: %w", err)
	}
	return &medicine, nil
}
