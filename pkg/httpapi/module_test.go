package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"habitquest/pkg/config"
	"habitquest/pkg/health"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func TestEngineServesHealthAndMetrics(t *testing.T) {
	r := NewEngine(&config.Config{AppEnv: "test"})
	registerHealthEndpoints(r, health.ProvideHealth(health.HealthParams{}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestEngineRendersPanicsAs500(t *testing.T) {
	r := NewEngine(&config.Config{AppEnv: "test"})
	V1(r).GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
