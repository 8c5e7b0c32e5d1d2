package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"status-service/internal/response"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextToken  = "jwtToken"
)

// TokenValidator interface for auth-service token validation
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenStr string) (uuid.UUID, error)
}

// AuthServiceValidator asks auth-service first and falls back to verifying the JWT locally
type AuthServiceValidator struct {
	authServiceURL string
	secretKey      string
	httpClient     *http.Client
	logger         *zap.Logger
}

func NewAuthServiceValidator(authServiceURL, secretKey string, timeout time.Duration, logger *zap.Logger) *AuthServiceValidator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthServiceValidator{
		authServiceURL: strings.TrimRight(authServiceURL, "/"),
		secretKey:      secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (v *AuthServiceValidator) ValidateToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	// Try auth service first
	if v.authServiceURL != "" {
		userID, err := v.validateWithAuthService(ctx, tokenString)
		if err == nil {
			return userID, nil
		}
		v.logger.Debug("Auth service validation failed, falling back to local", zap.Error(err))
	}

	return v.validateLocally(tokenString)
}

func (v *AuthServiceValidator) validateWithAuthService(ctx context.Context, token string) (uuid.UUID, error) {
	url := v.authServiceURL + "/api/auth/validate"

	reqBody, _ := json.Marshal(map[string]string{"token": token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return uuid.Nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	var result struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(result.UserID)
}

func (v *AuthServiceValidator) validateLocally(tokenString string) (uuid.UUID, error) {
	if v.secretKey == "" {
		return uuid.Nil, errors.New("no jwt secret configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(v.secretKey), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	// support multiple claim formats
	var userIDStr string
	for _, key := range []string{"sub", "userId", "user_id"} {
		if val, ok := claims[key].(string); ok && val != "" {
			userIDStr = val
			break
		}
	}
	if userIDStr == "" {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	return uuid.Parse(userIDStr)
}

// bearerToken extracts the token from "Bearer <token>"
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthWithValidator rejects requests without a valid bearer token
func AuthWithValidator(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Unauthorized.")
			c.Abort()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		userID, err := validator.ValidateToken(ctx, tokenString)
		if err != nil {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Unauthorized.")
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

// OptionalAuth sets the caller when a valid token is present and otherwise lets the
// request through anonymously. Handlers decide what an anonymous caller gets.
// The token may also arrive as the "token" query parameter, which browsers need
// for websocket upgrades.
func OptionalAuth(validator TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		userID, err := validator.ValidateToken(ctx, tokenString)
		if err != nil {
			logger.Debug("Ignoring invalid token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Next()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}
