package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"ads-gateway/internal/config"
	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/kvstore"
	"ads-gateway/internal/mcpserver"
	"ads-gateway/internal/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter wires the two outer surfaces: the MCP tool endpoint and the
// browser-facing OAuth flow. Everything else goes through tools.
func NewRouter(kv kvstore.Store, sessions *session.Manager, api *fbapi.Client, limits config.LimitsConfig) *chi.Mux {
	mcpSrv := mcpserver.New(sessions, api, limits)
	authHandlers := NewAuthHandlers(sessions, api)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", healthHandler(kv))

	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/login", authHandlers.Login())
		r.Get("/callback", authHandlers.Callback())
	})

	return r
}

// healthHandler probes the backing store with a read; a missing probe key
// still proves the store answered.
func healthHandler(kv kvstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := kv.Get(r.Context(), "healthz"); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "store": "down"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "store": "up"})
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
