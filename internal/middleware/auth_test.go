package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

type stubValidator struct {
	userID uuid.UUID
	err    error
}

func (v *stubValidator) ValidateToken(context.Context, string) (uuid.UUID, error) {
	return v.userID, v.err
}

func TestAuthServiceValidator_LocalClaims(t *testing.T) {
	v := NewAuthServiceValidator("", testSecret, time.Second, zap.NewNop())
	userID := uuid.New()

	for _, key := range []string{"sub", "userId", "user_id"} {
		t.Run(key, func(t *testing.T) {
			token := signToken(t, testSecret, jwt.MapClaims{key: userID.String(), "exp": time.Now().Add(time.Hour).Unix()})
			got, err := v.ValidateToken(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, userID, got)
		})
	}
}

func TestAuthServiceValidator_LocalRejects(t *testing.T) {
	v := NewAuthServiceValidator("", testSecret, time.Second, zap.NewNop())

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other", jwt.MapClaims{"sub": uuid.NewString()})},
		{"expired", signToken(t, testSecret, jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(-time.Hour).Unix()})},
		{"no user claim", signToken(t, testSecret, jwt.MapClaims{"name": "x"})},
		{"non-string claim", signToken(t, testSecret, jwt.MapClaims{"sub": 42})},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(context.Background(), tt.token)
			assert.Error(t, err)
		})
	}
}

func TestAuthServiceValidator_AuthService(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/validate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"userId": userID.String()})
	}))
	defer srv.Close()

	v := NewAuthServiceValidator(srv.URL+"/", "", time.Second, zap.NewNop())

	got, err := v.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = v.ValidateToken(context.Background(), "bad")
	assert.Error(t, err)
}

func TestAuthServiceValidator_FallsBackWhenAuthServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := NewAuthServiceValidator(srv.URL, testSecret, time.Second, zap.NewNop())
	userID := uuid.New()

	got, err := v.ValidateToken(context.Background(), signToken(t, testSecret, jwt.MapClaims{"sub": userID.String()}))
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestAuthWithValidator(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		validator  TokenValidator
		wantStatus int
	}{
		{"missing header", "", &stubValidator{userID: userID}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &stubValidator{userID: userID}, http.StatusUnauthorized},
		{"invalid token", "Bearer abc", &stubValidator{err: errors.New("invalid")}, http.StatusUnauthorized},
		{"valid token", "Bearer abc", &stubValidator{userID: userID}, http.StatusOK},
		{"lowercase scheme", "bearer abc", &stubValidator{userID: userID}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthWithValidator(tt.validator))
			router.GET("/x", func(c *gin.Context) {
				assert.Equal(t, userID, c.MustGet(ContextUserID))
				assert.Equal(t, "abc", c.MustGet(ContextToken))
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":{"code":"UNAUTHORIZED","message":"Unauthorized."},"message":"Unauthorized."}`, w.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name      string
		target    string
		header    string
		validator TokenValidator
		wantUser  bool
	}{
		{"anonymous", "/x", "", &stubValidator{userID: userID}, false},
		{"invalid token passes anonymously", "/x", "Bearer abc", &stubValidator{err: errors.New("invalid")}, false},
		{"header token", "/x", "Bearer abc", &stubValidator{userID: userID}, true},
		{"query token", "/x?token=abc", "", &stubValidator{userID: userID}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(OptionalAuth(tt.validator, zap.NewNop()))
			router.GET("/x", func(c *gin.Context) {
				_, exists := c.Get(ContextUserID)
				assert.Equal(t, tt.wantUser, exists)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
