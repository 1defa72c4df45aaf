package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
	"github.com/platinummonkey/unitgraph/pkg/httputil"
	"github.com/platinummonkey/unitgraph/pkg/observability"
	"github.com/platinummonkey/unitgraph/pkg/registry"
)

// Registry is the service the handlers call
type Registry interface {
	CreateUnit(ctx context.Context, unit *catalog.Unit) error
	GetUnit(ctx context.Context, id int64) (*catalog.Unit, error)
	ListUnits(ctx context.Context) ([]*catalog.Unit, error)
	UpdateUnit(ctx context.Context, unit *catalog.Unit) error
	DeleteUnit(ctx context.Context, id int64) error

	CreateTag(ctx context.Context, tag *catalog.Tag) error
	ListTags(ctx context.Context) ([]*catalog.Tag, error)

	CreateVersion(ctx context.Context, version *catalog.Version) error
	GetVersion(ctx context.Context, id int64) (*catalog.Version, error)
	ListVersions(ctx context.Context, unitID int64, constraint string) ([]*catalog.Version, error)
	SetVersionState(ctx context.Context, id int64, state catalog.State, published *time.Time) error
	DeleteVersion(ctx context.Context, id int64) error

	AddInclude(ctx context.Context, parent, child int64) error
	RemoveInclude(ctx context.Context, parent, child int64) error
	ReplaceIncludes(ctx context.Context, parent int64, children []int64) error
	CheckInclude(ctx context.Context, parent, child int64) error
	Includes(ctx context.Context, id int64) ([]*catalog.Version, error)
	IncludedIn(ctx context.Context, id int64) ([]*catalog.Version, error)
	Dependencies(ctx context.Context, id int64, topological bool) ([]*catalog.Version, error)
	Dependents(ctx context.Context, id int64) ([]*catalog.Version, error)
	Impact(ctx context.Context, id int64) (*dependencies.ImpactAnalysis, error)
	Audit(ctx context.Context) (*registry.AuditReport, error)
}

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Server represents our API server
type Server struct {
	registry Registry
	router   *mux.Router
	logger   *logrus.Logger
	metrics  *observability.Metrics
}

// Option configures a Server
type Option func(*Server)

// WithMetrics instruments every route with Prometheus metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new API server
func NewServer(reg Registry, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		router:   mux.NewRouter(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	// Unit routes
	s.router.HandleFunc("/units", s.createUnit).Methods(http.MethodPost)
	s.router.HandleFunc("/units", s.listUnits).Methods(http.MethodGet)
	s.router.HandleFunc("/units/{id}", s.getUnit).Methods(http.MethodGet)
	s.router.HandleFunc("/units/{id}", s.updateUnit).Methods(http.MethodPut)
	s.router.HandleFunc("/units/{id}", s.deleteUnit).Methods(http.MethodDelete)

	// Tag routes
	s.router.HandleFunc("/tags", s.createTag).Methods(http.MethodPost)
	s.router.HandleFunc("/tags", s.listTags).Methods(http.MethodGet)

	// Version routes
	s.router.HandleFunc("/units/{id}/versions", s.createVersion).Methods(http.MethodPost)
	s.router.HandleFunc("/units/{id}/versions", s.listVersions).Methods(http.MethodGet)
	s.router.HandleFunc("/versions/{id}", s.getVersion).Methods(http.MethodGet)
	s.router.HandleFunc("/versions/{id}", s.deleteVersion).Methods(http.MethodDelete)
	s.router.HandleFunc("/versions/{id}/state", s.setVersionState).Methods(http.MethodPut)

	// Includes graph routes
	s.router.HandleFunc("/versions/{id}/includes", s.listIncludes).Methods(http.MethodGet)
	s.router.HandleFunc("/versions/{id}/includes", s.replaceIncludes).Methods(http.MethodPut)
	s.router.HandleFunc("/versions/{id}/includes/{childId}", s.addInclude).Methods(http.MethodPost)
	s.router.HandleFunc("/versions/{id}/includes/{childId}", s.removeInclude).Methods(http.MethodDelete)
	s.router.HandleFunc("/versions/{id}/includes/{childId}/check", s.checkInclude).Methods(http.MethodPost)
	s.router.HandleFunc("/versions/{id}/included-in", s.listIncludedIn).Methods(http.MethodGet)
	s.router.HandleFunc("/versions/{id}/dependencies", s.dependencies).Methods(http.MethodGet)
	s.router.HandleFunc("/versions/{id}/dependents", s.dependents).Methods(http.MethodGet)
	s.router.HandleFunc("/versions/{id}/impact", s.impact).Methods(http.MethodGet)
	s.router.HandleFunc("/graph/audit", s.audit).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}
