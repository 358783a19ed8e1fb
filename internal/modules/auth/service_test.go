package auth

import (
	"context"
	"errors"
	"testing"

	"pulsegen/internal/domain"
	"pulsegen/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Mock User Repository implementing the interface
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 1
	}
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockJWT struct {
	mock.Mock
}

func (m *mockJWT) GenerateToken(userID int64, role string) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to viewer", func(t *testing.T) {
		users := new(mockUserRepo)
		jwt := new(mockJWT)
		svc := NewService(users, jwt)

		users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleViewer && u.Email == "ann@example.com" &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password1")) == nil
		})).Return(nil)
		jwt.On("GenerateToken", int64(1), "viewer").Return("tok", nil)

		res, err := svc.Register(ctx, RegisterRequest{Username: "ann", Email: " Ann@Example.com ", Password: "password1"})
		require.NoError(t, err)
		assert.Equal(t, "tok", res.AccessToken)
		assert.Empty(t, res.User.PasswordHash)
		users.AssertExpectations(t)
		jwt.AssertExpectations(t)
	})

	t.Run("editor allowed", func(t *testing.T) {
		users := new(mockUserRepo)
		jwt := new(mockJWT)
		svc := NewService(users, jwt)

		users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
		jwt.On("GenerateToken", int64(1), "editor").Return("tok", nil)

		res, err := svc.Register(ctx, RegisterRequest{Username: "ed", Email: "ed@example.com", Password: "password1", Role: "editor"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEditor, res.User.Role)
	})

	t.Run("admin rejected", func(t *testing.T) {
		users := new(mockUserRepo)
		svc := NewService(users, new(mockJWT))

		_, err := svc.Register(ctx, RegisterRequest{Username: "root", Email: "r@example.com", Password: "password1", Role: "admin"})
		assert.ErrorIs(t, err, ErrRoleNotAllowed)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate", func(t *testing.T) {
		users := new(mockUserRepo)
		svc := NewService(users, new(mockJWT))
		users.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

		_, err := svc.Register(ctx, RegisterRequest{Username: "ann", Email: "ann@example.com", Password: "password1"})
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	stored := func() *domain.User {
		return &domain.User{ID: 7, Username: "ann", PasswordHash: hash, Role: domain.RoleEditor}
	}

	t.Run("success", func(t *testing.T) {
		users := new(mockUserRepo)
		jwt := new(mockJWT)
		users.On("GetByUsername", ctx, "ann").Return(stored(), nil)
		jwt.On("GenerateToken", int64(7), "editor").Return("tok", nil)

		res, err := NewService(users, jwt).Login(ctx, LoginRequest{Username: "ann", Password: "correct-horse"})
		require.NoError(t, err)
		assert.Equal(t, "tok", res.AccessToken)
		assert.Empty(t, res.User.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByUsername", ctx, "ann").Return(stored(), nil)

		_, err := NewService(users, new(mockJWT)).Login(ctx, LoginRequest{Username: "ann", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByUsername", ctx, "ghost").Return(nil, repository.ErrUserNotFound)

		_, err := NewService(users, new(mockJWT)).Login(ctx, LoginRequest{Username: "ghost", Password: "x"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("repository failure", func(t *testing.T) {
		users := new(mockUserRepo)
		boom := errors.New("db down")
		users.On("GetByUsername", ctx, "ann").Return(nil, boom)

		_, err := NewService(users, new(mockJWT)).Login(ctx, LoginRequest{Username: "ann", Password: "x"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestService_GetMe(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepo)
	users.On("GetByID", ctx, int64(3)).Return(&domain.User{ID: 3, Username: "v", PasswordHash: "secret", Role: domain.RoleViewer}, nil)
	users.On("GetByID", ctx, int64(4)).Return(nil, repository.ErrUserNotFound)
	svc := NewService(users, new(mockJWT))

	u, err := svc.GetMe(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)

	_, err = svc.GetMe(ctx, 4)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
