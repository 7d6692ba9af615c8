package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS_DefaultRejectsCrossOrigin(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "http://evil.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodOptions, "/test", map[string]string{"Origin": "http://evil.example"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://finanzas.example"}

	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.POST("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("allowed origin", func(t *testing.T) {
		w := serve(router, http.MethodOptions, "/test", map[string]string{"Origin": "https://finanzas.example"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://finanzas.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderIdempotencyKey)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderActor)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("other origin", func(t *testing.T) {
		w := serve(router, http.MethodOptions, "/test", map[string]string{"Origin": "https://other.example"})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard drops credentials", func(t *testing.T) {
		wild := DefaultCORSConfig()
		wild.AllowOrigins = []string{"*"}
		r := gin.New()
		r.Use(CORSWithConfig(wild))
		r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		w := serve(r, http.MethodGet, "/test", map[string]string{"Origin": "https://any.example"})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, logger.GetRequestID(c.Request.Context()))
	})

	t.Run("generates", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", nil)
		id := w.Header().Get(HeaderRequestID)
		assert.Len(t, id, 32)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagates", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", map[string]string{HeaderRequestID: "req-abc"})
		assert.Equal(t, "req-abc", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "req-abc", w.Body.String())
	})

	t.Run("truncates", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", map[string]string{HeaderRequestID: strings.Repeat("r", 300)})
		assert.Len(t, w.Header().Get(HeaderRequestID), MaxRequestIDLength)
	})
}

func TestActor(t *testing.T) {
	router := gin.New()
	router.Use(Actor())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetActor(c)+"|"+logger.CorrelationFrom(c.Request.Context()).Actor)
	})

	w := serve(router, http.MethodGet, "/test", map[string]string{HeaderActor: "  pmo@example.com "})
	assert.Equal(t, "pmo@example.com|pmo@example.com", w.Body.String())

	w = serve(router, http.MethodGet, "/test", nil)
	assert.Equal(t, "|", w.Body.String())
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure(DefaultSecurityConfig()))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/swagger/index.html", func(c *gin.Context) { c.String(http.StatusOK, "docs") })

	w := serve(router, http.MethodGet, "/test", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = serve(router, http.MethodGet, "/swagger/index.html", nil)
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))

	cfg := DefaultSecurityConfig()
	cfg.HSTSEnabled = true
	r := gin.New()
	r.Use(Secure(cfg))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	w = serve(r, http.MethodGet, "/test", nil)
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}
