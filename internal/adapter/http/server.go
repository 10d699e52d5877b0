package adapthttp

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"weighttracking/internal/app"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	sheets  *app.WeightSheetService
	weights *app.WeightService
	reports *app.ReportService
	authSvc *app.AuthService

	logger        *zap.Logger
	metrics       *Metrics
	oidcConfig    OIDCConfig
	forwardHeader string
	webDir        string
}

// New creates a Server wired to the given application services.
func New(sheets *app.WeightSheetService, weights *app.WeightService, reports *app.ReportService, authSvc *app.AuthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sheets:        sheets,
		weights:       weights,
		reports:       reports,
		authSvc:       authSvc,
		logger:        logger,
		metrics:       NewMetrics(),
	}
}

// WithOIDC enables SSO login through cfg.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithForwardAuthHeader trusts the named header as the caller's identity.
// Only set it behind a proxy that strips the header from client requests.
// Forward auth is off until this is called with a non-empty name.
func (s *Server) WithForwardAuthHeader(name string) *Server {
	s.forwardHeader = name
	return s
}

// WithWebDir serves a static front-end from dir at the root path.
func (s *Server) WithWebDir(dir string) *Server {
	s.webDir = dir
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	s.route(api, "GET /health", false, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.Handle("GET /metrics", s.metrics.Handler())

	s.route(api, "POST /login", false, s.handleLogin)
	s.route(api, "POST /logout", false, s.handleLogout)
	s.route(api, "GET /config", false, s.handleConfig)
	s.route(api, "GET /sso/login", false, s.handleSSOLogin)
	s.route(api, "GET /sso/callback", false, s.handleSSOCallback)

	s.route(api, "GET /weightsheets", true, s.handleListWeightSheets)
	s.route(api, "POST /weightsheets", true, s.handleCreateWeightSheet)
	s.route(api, "GET /weightsheets/{id}", true, s.handleGetWeightSheet)
	s.route(api, "PUT /weightsheets/{id}", true, s.handleUpdateWeightSheet)
	s.route(api, "DELETE /weightsheets/{id}", true, s.handleDestroyWeightSheet)
	s.route(api, "POST /weightsheets/create_all_weightsheets", true, s.handleCreateAllWeightSheets)
	s.route(api, "DELETE /weightsheets/delete_all_by_date", true, s.handleDeleteAllByDate)
	s.route(api, "PUT /weightsheets/save_weightsheets", true, s.handleSaveWeightSheets)
	s.route(api, "PUT /weightsheets/unsave_weightsheets", true, s.handleUnsaveWeightSheets)
	s.route(api, "GET /weightsheets/dates", true, s.handleDates)
	s.route(api, "GET /weightsheets/finalized_dates", true, s.handleFinalizedDates)
	s.route(api, "GET /weightsheets/detailedview_rd", true, s.handleDetailedView)
	s.route(api, "POST /weightsheets/detailedview_rd", true, s.handleDetailedView)
	s.route(api, "GET /weightsheets/detailedview_rd/export", true, s.handleDetailedViewExport)

	s.route(api, "GET /weights", true, s.handleListWeights)
	s.route(api, "POST /weights", true, s.handleRecordWeight)
	s.route(api, "GET /weights/history", true, s.handleWeightHistory)
	s.route(api, "GET /weights/{id}", true, s.handleGetWeight)
	s.route(api, "PUT /weights/{id}", true, s.handleCorrectWeight)
	s.route(api, "DELETE /weights/{id}", true, s.handleDeleteWeight)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	if s.webDir != "" {
		root.Handle("/", spaFromDisk(s.webDir))
	}

	return s.loggingMiddleware(withNoCache(root))
}

func (s *Server) route(mux *http.ServeMux, pattern string, auth bool, h http.HandlerFunc) {
	var handler http.Handler = h
	if auth {
		handler = s.authMiddleware(handler)
	}
	mux.Handle(pattern, s.metrics.instrument(pattern, handler))
}

// sessionMaxAge is the cookie lifetime matching the session TTL.
func (s *Server) sessionMaxAge() int {
	return int(s.authSvc.SessionTTL() / time.Second)
}
