package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/application/audit"
	baselineapp "github.com/finanzas/backend/internal/application/baseline"
	handoffapp "github.com/finanzas/backend/internal/application/handoff"
	projectapp "github.com/finanzas/backend/internal/application/project"
	"github.com/finanzas/backend/internal/application/retry"
	rubroapp "github.com/finanzas/backend/internal/application/rubro"
	"github.com/finanzas/backend/internal/infrastructure/cache"
	"github.com/finanzas/backend/internal/infrastructure/persistence"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/finanzas/backend/internal/infrastructure/taxonomy"
	"github.com/finanzas/backend/internal/interfaces/http/dto"
	"github.com/finanzas/backend/internal/interfaces/http/handler"
	"github.com/finanzas/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMount(t *testing.T) {
	status := func(code int) gin.HandlerFunc {
		return func(c *gin.Context) { c.Status(code) }
	}
	routes := append(under("/projects",
		get("", status(http.StatusOK)),
		post("/:id/handoff", status(http.StatusCreated)),
		patch("/:id/accept-baseline", status(http.StatusAccepted)),
	), get("/system/info", status(http.StatusNoContent)))

	engine := gin.New()
	require.NoError(t, Mount(engine, "v2", routes))

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v2/projects", http.StatusOK},
		{http.MethodPost, "/api/v2/projects/P-1/handoff", http.StatusCreated},
		{http.MethodPatch, "/api/v2/projects/P-1/accept-baseline", http.StatusAccepted},
		{http.MethodGet, "/api/v2/system/info", http.StatusNoContent},
		{http.MethodGet, "/api/v2/projects/P-1/handoff", http.StatusNotFound},
		{http.MethodGet, "/api/v1/projects", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMount_RejectsBadTables(t *testing.T) {
	noop := func(*gin.Context) {}

	err := Mount(gin.New(), APIVersion, []Route{get("/a", noop), post("/a", noop), get("/a", noop)})
	assert.ErrorContains(t, err, "GET /a declared twice")

	err = Mount(gin.New(), APIVersion, []Route{get("/b")})
	assert.ErrorContains(t, err, "no handler")
}

func TestRoutes_Unique(t *testing.T) {
	routes := Routes(testHandlers(nil))
	seen := map[string]bool{}
	for _, r := range routes {
		key := r.Method + " " + r.Path
		assert.False(t, seen[key], key)
		seen[key] = true
	}
	assert.True(t, seen["POST /projects/:id/handoff"])
	assert.True(t, seen["GET /projects/:id/rubros/summary"])
	assert.True(t, seen["POST /baselines"])
}

func testHandlers(checks map[string]handler.ReadinessCheck) Handlers {
	s := store.NewMemoryStore()
	projects := persistence.NewStoreProjectRepository(s)
	handoffs := persistence.NewStoreHandoffRepository(s)
	baselines := persistence.NewStoreBaselineRepository(s)
	rubros := persistence.NewStoreRubroRepository(s)
	idem := cache.NewEntityIdempotencyStore(s)
	recorder := audit.NewRecorder(persistence.NewStoreAuditRepository(s))
	policy := retry.Policy{Attempts: 2, Initial: time.Millisecond, Max: time.Millisecond}

	projectSvc := projectapp.NewService(projectapp.Config{
		Projects: projects, Handoffs: handoffs, Recorder: recorder, Retry: policy,
	})
	return Handlers{
		Projects: handler.NewProjectHandler(projectSvc),
		Handoffs: handler.NewHandoffHandler(handoffapp.NewService(handoffapp.Config{
			Projects: projects, Handoffs: handoffs, Baselines: baselines,
			Idempotency: idem, Recorder: recorder, Retry: policy,
		})),
		Baselines: handler.NewBaselineHandler(baselineapp.NewService(baselineapp.Config{
			Baselines: baselines, Idempotency: idem, Recorder: recorder,
		})),
		Rubros: handler.NewRubroHandler(
			rubroapp.NewMaterializer(rubroapp.MaterializerConfig{
				Projects: projects, Baselines: baselines, Rubros: rubros,
				Taxonomy: taxonomy.Default(), Recorder: recorder, Retry: policy,
			}),
			rubroapp.NewQueryService(projects, rubros),
			projectSvc,
		),
		System: handler.NewSystemHandler("finanzas-backend", "test", checks),
	}
}

func newEngine(t *testing.T, opts Options, checks map[string]handler.ReadinessCheck) *gin.Engine {
	t.Helper()
	opts.CORS = middleware.DefaultCORSConfig()
	opts.Security = middleware.DefaultSecurityConfig()
	engine, err := New(opts, testHandlers(checks))
	require.NoError(t, err)
	return engine
}

func serve(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderActor, "pmo@example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNew_Probes(t *testing.T) {
	engine := newEngine(t, Options{MaxBodySize: 1 << 20}, map[string]handler.ReadinessCheck{
		"store": func(context.Context) error { return nil },
	})

	w := serve(engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = serve(engine, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/system/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "finanzas-backend")
}

func TestNew_ReadyFailsWhenACheckFails(t *testing.T) {
	engine := newEngine(t, Options{}, map[string]handler.ReadinessCheck{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	})

	w := serve(engine, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body handler.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "ok", body.Checks["store"])
	assert.Equal(t, "dial tcp: refused", body.Checks["redis"])
}

func TestNew_UnknownRoute(t *testing.T) {
	engine := newEngine(t, Options{}, nil)

	w := serve(engine, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, dto.ErrCodeNotFound, body.Error.Code)
}

func TestNew_Swagger(t *testing.T) {
	off := newEngine(t, Options{Swagger: middleware.SwaggerConfig{Enabled: false}}, nil)
	w := serve(off, http.MethodGet, "/swagger/index.html", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	on := newEngine(t, Options{Swagger: middleware.SwaggerConfig{Enabled: true}}, nil)
	w = serve(on, http.MethodGet, "/swagger/index.html", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_BodyLimit(t *testing.T) {
	engine := newEngine(t, Options{MaxBodySize: 64}, nil)

	w := serve(engine, http.MethodPost, "/api/v1/projects", map[string]string{
		"name": string(bytes.Repeat([]byte("x"), 256)),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNew_APIRoutesAreMounted(t *testing.T) {
	engine := newEngine(t, Options{}, nil)

	w := serve(engine, http.MethodPost, "/api/v1/projects", map[string]string{
		"project_id": "P-100", "name": "Mesa de servicio",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for _, path := range []string{
		"/api/v1/projects",
		"/api/v1/projects/P-100",
		"/api/v1/projects/P-100/handoffs",
		"/api/v1/projects/P-100/audit",
		"/api/v1/projects/P-100/rubros",
		"/api/v1/projects/P-100/rubros/summary",
	} {
		w = serve(engine, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w = serve(engine, http.MethodGet, "/api/v1/baselines/base_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(engine, http.MethodPost, "/api/v1/projects/P-100/materialize-rubros", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
