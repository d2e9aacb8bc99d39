package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/pkg/di"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestRouter assembles the real container and router over an in-process
// Redis and a throwaway sqlite account store.
func newTestRouter(t *testing.T) (*Router, *di.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "accounts.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}))

	diConfig := di.DefaultConfig()
	diConfig.LoggerConfig = logger.Config{Level: "error", JSON: false}
	diConfig.JWTSecret = "router-test-secret"

	container, err := di.New(db, rdb, diConfig)
	require.NoError(t, err)

	r := New(container)
	r.SetupRoutes()
	return r, container
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/api/v1/messages?selectedUserId=u2", "/api/v1/users", "/api/messages?selectedUserId=u2", "/ws?peerId=u2"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.Engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAuthenticatedMessageHistoryRoute(t *testing.T) {
	r, container := newTestRouter(t)

	token, err := container.JWTService.GenerateToken("u1", "u1@example.com")
	require.NoError(t, err)

	// versioned and legacy aliases serve the same handler
	for _, path := range []string{"/api/v1/messages?selectedUserId=u2", "/api/messages?selectedUserId=u2"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.Engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()), path)
	}
}

func TestHealthEndpointReportsComponents(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestSignupRouteIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{"email":"ada@example.com","password":"correct horse","given_name":"Ada","family_name":"Lovelace"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)
}
