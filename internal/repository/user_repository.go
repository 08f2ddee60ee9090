package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medichat-api/internal/models"
)

const userColumns = `id, name, email, mobile, mobile_hash, password_hash, role, is_premium, created_at, updated_at`

// fieldCipher protects personal columns at rest.
type fieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	BlindIndex(value string) string
}

// userRow mirrors the users table. mobile holds ciphertext and is only ever
// converted to plaintext by toUser.
type userRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Email        sql.NullString `db:"email"`
	Mobile       sql.NullString `db:"mobile"`
	MobileHash   sql.NullString `db:"mobile_hash"`
	PasswordHash sql.NullString `db:"password_hash"`
	Role         sql.NullString `db:"role"`
	IsPremium    bool           `db:"is_premium"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// UserRepository provides database access for users.
type UserRepository struct {
	db     *sqlx.DB
	cipher fieldCipher
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB, cipher fieldCipher) *UserRepository {
	return &UserRepository{db: db, cipher: cipher}
}

// FindByID returns a user by identifier. sql.ErrNoRows is returned unwrapped
// when no row matches.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return r.findOne(ctx, "find user by id", query, id)
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	return r.findOne(ctx, "find user by email", query, email)
}

// FindByMobile looks a user up through the mobile blind index.
func (r *UserRepository) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE mobile_hash = $1 LIMIT 1`
	return r.findOne(ctx, "find user by mobile", query, r.cipher.BlindIndex(mobile))
}

func (r *UserRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*models.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r.toUser(row)
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, string(*filter.Role))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY id ASC LIMIT %d OFFSET %d", userColumns, baseQuery, pageSize, offset)

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		user, err := r.toUser(row)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}

	return users, total, nil
}

// Create inserts a new user and fills in the generated identifier.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	row, err := r.toRow(user)
	if err != nil {
		return err
	}

	const query = `INSERT INTO users (name, email, mobile, mobile_hash, password_hash, role, is_premium, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		row.Name, row.Email, row.Mobile, row.MobileHash, row.PasswordHash, row.Role, row.IsPremium, row.CreatedAt, row.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if row.MobileHash.Valid {
		user.MobileHash = &row.MobileHash.String
	}
	return nil
}

func (r *UserRepository) toUser(row userRow) (*models.User, error) {
	user := &models.User{
		ID:        row.ID,
		Name:      row.Name,
		Role:      models.UserRole(row.Role.String),
		IsPremium: row.IsPremium,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Email.Valid {
		user.Email = &row.Email.String
	}
	if row.MobileHash.Valid {
		user.MobileHash = &row.MobileHash.String
	}
	if row.PasswordHash.Valid {
		user.PasswordHash = &row.PasswordHash.String
	}
	if row.Mobile.Valid && row.Mobile.String != "" {
		plain, err := r.cipher.Decrypt(row.Mobile.String)
		if err != nil {
			return nil, fmt.Errorf("decrypt mobile for user %d: %w", row.ID, err)
		}
		user.Mobile = &plain
	}
	return user, nil
}

func (r *UserRepository) toRow(user *models.User) (userRow, error) {
	row := userRow{
		ID:        user.ID,
		Name:      user.Name,
		Role:      sql.NullString{String: string(user.EffectiveRole()), Valid: true},
		IsPremium: user.IsPremium,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if user.Email != nil {
		row.Email = sql.NullString{String: strings.ToLower(*user.Email), Valid: true}
	}
	if user.PasswordHash != nil {
		row.PasswordHash = sql.NullString{String: *user.PasswordHash, Valid: true}
	}
	if user.Mobile != nil && *user.Mobile != "" {
		sealed, err := r.cipher.Encrypt(*user.Mobile)
		if err != nil {
			return userRow{}, fmt.Errorf("encrypt mobile: %w", err)
		}
		row.Mobile = sql.NullString{String: sealed, Valid: true}
		row.MobileHash = sql.NullString{String: r.cipher.BlindIndex(*user.Mobile), Valid: true}
	}
	return row, nil
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
