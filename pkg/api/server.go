package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/modhost/pkg/host"
	"github.com/platinummonkey/modhost/pkg/httputil"
	"github.com/platinummonkey/modhost/pkg/module"
	"github.com/platinummonkey/modhost/pkg/observability"
	"github.com/platinummonkey/modhost/pkg/plugins"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Server exposes the host and its plugin manager over HTTP
type Server struct {
	host    *host.Manager
	plugins *plugins.Manager
	log     *logrus.Logger
	router  *mux.Router
}

// NewServer creates a server. A nil registry disables /metrics.
func NewServer(h *host.Manager, pm *plugins.Manager, registry *prometheus.Registry, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}

	s := &Server{
		host:    h,
		plugins: pm,
		log:     log,
		router:  mux.NewRouter(),
	}
	s.router.Use(httputil.RecoveryMiddleware(log), httputil.RequestIDMiddleware, httputil.LoggingMiddleware(log))
	s.RegisterRoutes(s.router)
	if registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(registry)).Methods("GET")
	}
	return s
}

// RegisterRoutes registers the API routes on r
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Handle("/healthz", httputil.HandlerFunc(s.Health)).Methods("GET")

	r.Handle("/api/v1/modules", httputil.HandlerFunc(s.ListModules)).Methods("GET")
	r.Handle("/api/v1/discover", httputil.HandlerFunc(s.Discover)).Methods("POST")

	r.Handle("/api/v1/plugins", httputil.HandlerFunc(s.ListPlugins)).Methods("GET")
	r.Handle("/api/v1/plugins/revalidate", httputil.HandlerFunc(s.Revalidate)).Methods("POST")
	r.Handle("/api/v1/plugins/{id}", httputil.HandlerFunc(s.GetPlugin)).Methods("GET")
	r.Handle("/api/v1/plugins/{id}/enabled", httputil.HandlerFunc(s.SetEnabled)).Methods("PUT")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health handles GET /healthz
func (s *Server) Health(w http.ResponseWriter, r *http.Request) error {
	return httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Modules: s.host.Registry().Count(),
		Plugins: s.plugins.Count(),
	})
}

// ListModules handles GET /api/v1/modules
func (s *Server) ListModules(w http.ResponseWriter, r *http.Request) error {
	views := []ModuleView{}
	for _, e := range s.host.Registry().List() {
		views = append(views, ModuleView{
			Ident:           module.IdentOf(e),
			Kind:            e.Kind(),
			Location:        e.Location(),
			State:           e.State().String(),
			FileExtensions:  e.FileExtensions(),
			InstallPath:     e.InstallPath(),
			SupportsInstall: module.SupportsInstall(e),
			Plugins:         len(s.plugins.ListByModule(e.Name())),
		})
	}
	return httputil.WriteJSON(w, http.StatusOK, views)
}

// ListPlugins handles GET /api/v1/plugins
func (s *Server) ListPlugins(w http.ResponseWriter, r *http.Request) error {
	var list []plugins.Descriptor
	switch {
	case r.URL.Query().Get("module") != "":
		list = s.plugins.ListByModule(r.URL.Query().Get("module"))
	case r.URL.Query().Get("kind") != "":
		list = s.plugins.ListByKind(r.URL.Query().Get("kind"))
	default:
		list = s.plugins.List()
	}
	if list == nil {
		list = []plugins.Descriptor{}
	}
	return httputil.WriteJSON(w, http.StatusOK, list)
}

// GetPlugin handles GET /api/v1/plugins/{id}
func (s *Server) GetPlugin(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.PathParam(r, "id")
	if err != nil {
		return err
	}

	desc, err := s.plugins.Get(module.PluginID(id))
	if err != nil {
		return pluginError(err)
	}
	return httputil.WriteJSON(w, http.StatusOK, desc)
}

// SetEnabled handles PUT /api/v1/plugins/{id}/enabled
func (s *Server) SetEnabled(w http.ResponseWriter, r *http.Request) error {
	id, err := httputil.PathParam(r, "id")
	if err != nil {
		return err
	}

	var req EnabledRequest
	if err := httputil.DecodeJSON(w, r, &req, false); err != nil {
		return err
	}

	if err := s.plugins.SetEnabled(module.PluginID(id), req.Enabled); err != nil {
		return pluginError(err)
	}

	desc, err := s.plugins.Get(module.PluginID(id))
	if err != nil {
		return pluginError(err)
	}
	return httputil.WriteJSON(w, http.StatusOK, desc)
}

// Revalidate handles POST /api/v1/plugins/revalidate
func (s *Server) Revalidate(w http.ResponseWriter, r *http.Request) error {
	fast, err := httputil.QueryBool(r, "fast", true)
	if err != nil {
		return err
	}

	report, err := s.plugins.Revalidate(r.Context(), fast)
	if err != nil {
		return err
	}
	if report.Stale == nil {
		report.Stale = []module.PluginID{}
	}
	return httputil.WriteJSON(w, http.StatusOK, report)
}

// Discover handles POST /api/v1/discover
func (s *Server) Discover(w http.ResponseWriter, r *http.Request) error {
	var req DiscoverRequest
	if err := httputil.DecodeJSON(w, r, &req, true); err != nil {
		return err
	}

	opts := host.DiscoveryOptions{Modules: req.Modules}
	if len(req.Select) > 0 {
		opts.Select = host.SelectLocations(req.Select...)
	}

	summary, err := s.host.Discover(r.Context(), s.plugins, opts)
	if err != nil {
		s.log.Warnf("Discovery request interrupted: %v", err)
	}
	return httputil.WriteJSON(w, http.StatusOK, newDiscoverResponse(summary))
}

// pluginError maps unknown plugin IDs to 404
func pluginError(err error) error {
	if errors.Is(err, plugins.ErrPluginNotFound) {
		return httputil.NotFound(err)
	}
	return err
}
