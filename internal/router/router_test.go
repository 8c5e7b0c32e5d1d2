package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "status-service/docs"
	"status-service/internal/config"
	"status-service/internal/domain"
	"status-service/internal/metrics"
	"status-service/internal/middleware"
	"status-service/internal/repository"
	"status-service/internal/service"
)

const testSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router      *gin.Engine
	memberRepo  repository.MemberRepository
	workspaceID uuid.UUID
}

func setupTestApp(t *testing.T, withService bool) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.StatusRecord{}, &domain.WorkspaceMember{}))

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry, zap.NewNop())
	memberRepo := repository.NewMemberRepository(db)
	membership := service.NewLocalMembershipChecker(memberRepo)

	cfg := Config{
		Logger:      zap.NewNop(),
		Metrics:     m,
		Gatherer:    registry,
		BasePath:    "/api/status",
		CORSOrigins: "*",
		Validator:   middleware.NewAuthServiceValidator("", testSecret, time.Second, zap.NewNop()),
		Membership:  membership,
		GetDB:       func() *gorm.DB { return db },
	}
	if withService {
		cfg.StatusService = service.NewStatusService(
			repository.NewStatusRepository(db),
			membership,
			nil,
			service.NewStatusServiceConfig(config.Default().Presence),
			m,
			zap.NewNop(),
		)
	}

	return &testApp{router: Setup(cfg), memberRepo: memberRepo, workspaceID: uuid.New()}
}

func (a *testApp) join(t *testing.T, userID uuid.UUID) {
	t.Helper()
	require.NoError(t, a.memberRepo.Add(context.Background(), &domain.WorkspaceMember{
		WorkspaceID: a.workspaceID,
		UserID:      userID,
		RoleName:    domain.RoleMember,
		IsActive:    true,
	}))
}

func tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestRouter_StatusFlow(t *testing.T) {
	app := setupTestApp(t, true)
	alice, bob := uuid.New(), uuid.New()
	app.join(t, alice)
	app.join(t, bob)
	aliceToken := tokenFor(t, alice)

	w := app.do(http.MethodPost, "/api/status/status", aliceToken, map[string]string{
		"status":      "online",
		"workspaceId": app.workspaceID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"data":{"success":true}}`, w.Body.String())

	w = app.do(http.MethodPost, "/api/status/status", aliceToken, map[string]string{
		"status":      "online",
		"workspaceId": app.workspaceID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"success":true,"skipped":true}}`, w.Body.String())

	w = app.do(http.MethodGet, "/api/status/workspaces/"+app.workspaceID.String()+"/status?userId="+alice.String(), tokenFor(t, bob), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var single struct {
		Data struct {
			Status   string `json:"status"`
			LastSeen int64  `json:"lastSeen"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &single))
	assert.Equal(t, "online", single.Data.Status)
	assert.Positive(t, single.Data.LastSeen)

	w = app.do(http.MethodGet, "/api/status/workspaces/"+app.workspaceID.String()+"/statuses", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), alice.String())

	w = app.do(http.MethodPost, "/api/status/status/sign-out", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"success":true}}`, w.Body.String())

	w = app.do(http.MethodGet, "/api/status/workspaces/"+app.workspaceID.String()+"/status", aliceToken, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &single))
	assert.Equal(t, "offline", single.Data.Status)
}

func TestRouter_Authorization(t *testing.T) {
	app := setupTestApp(t, true)
	outsider := uuid.New()
	outsiderToken := tokenFor(t, outsider)
	body := map[string]string{"status": "online", "workspaceId": app.workspaceID.String()}

	w := app.do(http.MethodPost, "/api/status/status", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/api/status/status", "garbage", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/api/status/status", outsiderToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Not a member of this workspace.")

	w = app.do(http.MethodGet, "/api/status/workspaces/"+app.workspaceID.String()+"/status", outsiderToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())

	w = app.do(http.MethodGet, "/api/status/workspaces/"+app.workspaceID.String()+"/statuses", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = app.do(http.MethodPost, "/api/status/status/sign-out", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"success":false}}`, w.Body.String())
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	app := setupTestApp(t, true)

	for _, path := range []string{"/health", "/ready", "/api/status/health", "/api/status/ready"} {
		w := app.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	// generate at least one recorded request
	app.do(http.MethodGet, "/api/status/workspaces/"+uuid.NewString()+"/statuses", "", nil)

	for _, path := range []string{"/metrics", "/api/status/metrics"} {
		w := app.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, w.Body.String(), "status_service_http_requests_total")
	}

	w := app.do(http.MethodGet, "/api/status/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/workspaces/{workspaceId}/statuses")
}

func TestRouter_WithoutServiceOnlyOperationalRoutes(t *testing.T) {
	app := setupTestApp(t, false)

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPost, "/api/status/status", "", nil).Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	app := setupTestApp(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/status/status", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
}
