package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

func TestUserServiceList(t *testing.T) {
	repo := newFakeUserRepo()
	repo.listed = []models.User{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	svc := NewUserService(repo, nil, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 2}, pagination)

	repo.findErr = errors.New("db down")
	_, _, err = svc.List(context.Background(), models.UserFilter{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestUserServiceGet(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(testUser()), nil, nil)

	user, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Dana", user.Name)

	_, err = svc.Get(context.Background(), 8)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreate(t *testing.T) {
	repo := newFakeUserRepo(testUser())
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{Name: " Sam ", Email: "Sam@Example.com", Role: models.RoleSupervisor, Password: "long-enough"}, 7)
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.Name)
	assert.Equal(t, "sam@example.com", *user.Email)
	require.NotNil(t, user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("long-enough")))

	patient, err := svc.Create(context.Background(), CreateUserRequest{Name: "Pat", Mobile: "+15550177"}, 7)
	require.NoError(t, err)
	assert.Nil(t, patient.PasswordHash)
	assert.Equal(t, models.RoleUser, patient.EffectiveRole())
}

func TestUserServiceCreateRejects(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(testUser()), nil, nil)

	cases := map[string]struct {
		req  CreateUserRequest
		code string
	}{
		"duplicate email":      {CreateUserRequest{Name: "X", Email: "dana@example.com"}, appErrors.ErrConflict.Code},
		"duplicate mobile":     {CreateUserRequest{Name: "X", Mobile: "+15550100"}, appErrors.ErrConflict.Code},
		"no contact":           {CreateUserRequest{Name: "X"}, appErrors.ErrValidation.Code},
		"admin needs password": {CreateUserRequest{Name: "X", Email: "x@example.com", Role: models.RoleAdmin}, appErrors.ErrValidation.Code},
		"unknown role":         {CreateUserRequest{Name: "X", Email: "x@example.com", Role: "root"}, appErrors.ErrValidation.Code},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req, 7)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestToUserInfo(t *testing.T) {
	info := ToUserInfo(&models.User{ID: 3, Name: "N", IsPremium: true})
	assert.Equal(t, models.UserInfo{ID: 3, Name: "N", Role: models.RoleUser, IsPremium: true}, info)
}
