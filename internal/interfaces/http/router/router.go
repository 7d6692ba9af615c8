package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIVersion prefixes every business route: /api/<APIVersion>/...
const APIVersion = "v1"

// Route is one endpoint of the versioned API
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

func get(path string, h ...gin.HandlerFunc) Route   { return Route{http.MethodGet, path, h} }
func post(path string, h ...gin.HandlerFunc) Route  { return Route{http.MethodPost, path, h} }
func patch(path string, h ...gin.HandlerFunc) Route { return Route{http.MethodPatch, path, h} }

// under prefixes the path of each route with prefix
func under(prefix string, routes ...Route) []Route {
	out := make([]Route, len(routes))
	for i, r := range routes {
		r.Path = prefix + r.Path
		out[i] = r
	}
	return out
}

// Mount registers routes below /api/<version>. A method and path declared
// twice is an error rather than a gin panic.
func Mount(engine *gin.Engine, version string, routes []Route) error {
	api := engine.Group("/api/" + version)
	seen := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		key := r.Method + " " + r.Path
		if _, dup := seen[key]; dup {
			return fmt.Errorf("route %s declared twice", key)
		}
		if len(r.Handlers) == 0 {
			return fmt.Errorf("route %s has no handler", key)
		}
		seen[key] = struct{}{}
		api.Handle(r.Method, r.Path, r.Handlers...)
	}
	return nil
}

// Routes is the versioned API surface
func Routes(h Handlers) []Route {
	var routes []Route
	routes = append(routes, under("/projects",
		post("", h.Projects.Create),
		get("", h.Projects.List),
		get("/:id", h.Projects.Get),
		post("/:id/handoff", h.Handoffs.Handoff),
		get("/:id/handoffs", h.Projects.Handoffs),
		get("/:id/audit", h.Projects.History),
		patch("/:id/accept-baseline", h.Projects.AcceptBaseline),
		patch("/:id/reject-baseline", h.Projects.RejectBaseline),
		post("/:id/materialize-rubros", h.Rubros.Materialize),
		get("/:id/rubros", h.Rubros.List),
		get("/:id/rubros/summary", h.Rubros.Summary),
	)...)
	routes = append(routes, under("/baselines",
		post("", h.Baselines.Create),
		get("/:id", h.Baselines.Get),
		get("/:id/audit", h.Baselines.History),
	)...)
	routes = append(routes, get("/system/info", h.System.GetSystemInfo))
	return routes
}
