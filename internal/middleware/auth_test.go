package middleware

import (
	"net/http"
	"net/http/httptest"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/util"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthMiddleware(cfg), RoleMiddleware(util.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, util.GetUserFromContext(c).Username)
	})
	return r
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	r := newAdminEngine(cfg)

	assert.Equal(t, http.StatusUnauthorized, request(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "garbage").Code)

	token, err := util.GenerateJWT("admin", util.RoleAdmin, cfg.JWT.Secret, time.Hour)
	require.NoError(t, err)
	w := request(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
}

func TestRoleMiddlewareRejectsOtherRoles(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	r := newAdminEngine(cfg)

	token, err := util.GenerateJWT("guest", "viewer", cfg.JWT.Secret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(r, token).Code)
}
