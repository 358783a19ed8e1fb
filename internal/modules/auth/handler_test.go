package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulsegen/internal/database"
	"pulsegen/internal/middleware"
	"pulsegen/internal/pkg/jwt"
	"pulsegen/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect("file:auth_"+t.Name()+"?mode=memory&cache=shared", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	jwtService := jwt.New("handler-secret", time.Hour)
	h := NewHandler(NewService(repository.NewUserRepository(db), jwtService), time.Hour)

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterPublicRoutes(v1)
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(jwtService))
	h.RegisterProtectedRoutes(protected)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type tokenEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		User   UserPublic `json:"user"`
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	} `json:"data"`
}

func TestHandler_RegisterLoginMe(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "editor1", "email": "editor1@example.com", "password": "password123", "role": "editor",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg tokenEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.True(t, reg.Success)
	assert.Equal(t, "editor", reg.Data.User.Role)
	assert.NotEmpty(t, reg.Data.Tokens.AccessToken)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(r, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "editor1", "email": "other@example.com", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "editor1", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login tokenEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = doJSON(r, http.MethodGet, "/api/v1/users/me", nil, login.Data.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "editor1@example.com")

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "editor1", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestHandler_RegisterValidation(t *testing.T) {
	r := setupRouter(t)

	cases := []struct {
		name string
		body gin.H
		code int
	}{
		{"short password", gin.H{"username": "abc", "email": "a@example.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", gin.H{"username": "abc", "email": "nope", "password": "password123"}, http.StatusBadRequest},
		{"unknown role", gin.H{"username": "abc", "email": "a@example.com", "password": "password123", "role": "owner"}, http.StatusBadRequest},
		{"admin role", gin.H{"username": "abc", "email": "a@example.com", "password": "password123", "role": "admin"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := doJSON(r, http.MethodPost, "/api/v1/auth/register", tc.body, "")
		assert.Equal(t, tc.code, w.Code, tc.name)
	}
}
