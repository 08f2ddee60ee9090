package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Name      string          `json:"name" validate:"required,max=120"`
	Email     string          `json:"email" validate:"omitempty,email"`
	Mobile    string          `json:"mobile" validate:"omitempty,e164"`
	Role      models.UserRole `json:"role" validate:"omitempty,oneof=user admin supervisor"`
	IsPremium bool            `json:"isPremium"`
	Password  string          `json:"password" validate:"omitempty,min=8"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.InternalMessage(err, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.InternalMessage(err, "failed to load user")
	}
	return user, nil
}

// Create adds a new user. Admin and supervisor accounts need a password for
// the console login; plain users sign in with one-time codes.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID int64) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if req.Email == "" && req.Mobile == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email or mobile is required")
	}
	if (req.Role == models.RoleAdmin || req.Role == models.RoleSupervisor) && req.Password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password is required for console roles")
	}

	if req.Email != "" {
		if err := s.ensureAbsent(s.repo.FindByEmail(ctx, req.Email)); err != nil {
			return nil, err
		}
	}
	if req.Mobile != "" {
		if err := s.ensureAbsent(s.repo.FindByMobile(ctx, req.Mobile)); err != nil {
			return nil, err
		}
	}

	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Role:      req.Role,
		IsPremium: req.IsPremium,
	}
	if req.Email != "" {
		email := strings.ToLower(req.Email)
		user.Email = &email
	}
	if req.Mobile != "" {
		mobile := req.Mobile
		user.Mobile = &mobile
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.InternalMessage(err, "failed to hash password")
		}
		encoded := string(hash)
		user.PasswordHash = &encoded
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.InternalMessage(err, "failed to create user")
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.Int64("actor_id", actorID), zap.String("role", string(user.EffectiveRole())))
	return user, nil
}

func (s *UserService) ensureAbsent(_ *models.User, err error) error {
	switch {
	case err == nil:
		return appErrors.Clone(appErrors.ErrConflict, "user already exists")
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return appErrors.InternalMessage(err, "failed to check user uniqueness")
	}
}

// ToUserInfo maps a user to its public response shape.
func ToUserInfo(user *models.User) models.UserInfo {
	info := models.UserInfo{
		ID:        user.ID,
		Name:      user.Name,
		Role:      user.EffectiveRole(),
		IsPremium: user.IsPremium,
	}
	if user.Email != nil {
		info.Email = *user.Email
	}
	return info
}
