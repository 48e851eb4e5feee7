// Package api serves the firm overview, client dashboards, ledger,
// evidence vault and reconciliation actions over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/reconcile"
)

// EvidenceSaver persists newly registered evidence.
type EvidenceSaver interface {
	SaveEvidence(ctx context.Context, ev model.Evidence) error
}

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	ledger   *ledger.Ledger
	orch     *reconcile.Orchestrator
	evidence EvidenceSaver
	usage    *cost.Meter
	batch    reconcile.BatchOptions
	now      func() time.Time
	newID    func() string
}

// Option configures a Server.
type Option func(*Server)

// WithEvidenceSaver persists evidence registered through POST /evidence.
func WithEvidenceSaver(s EvidenceSaver) Option {
	return func(srv *Server) { srv.evidence = s }
}

// WithBatchOptions sets the options used by the reconcile-all endpoint.
func WithBatchOptions(o reconcile.BatchOptions) Option {
	return func(srv *Server) { srv.batch = o }
}

// WithUsage exposes analyst spend recorded on m at GET /usage.
func WithUsage(m *cost.Meter) Option {
	return func(srv *Server) { srv.usage = m }
}

// WithClock overrides the upload timestamp source.
func WithClock(now func() time.Time) Option {
	return func(srv *Server) { srv.now = now }
}

// WithIDGenerator overrides evidence id generation.
func WithIDGenerator(f func() string) Option {
	return func(srv *Server) { srv.newID = f }
}

// NewServer creates a Server over the ledger and orchestrator.
func NewServer(l *ledger.Ledger, orch *reconcile.Orchestrator, opts ...Option) *Server {
	s := &Server{
		ledger: l,
		orch:   orch,
		batch:  reconcile.BatchOptions{Concurrency: 1},
		now:    time.Now,
		newID:  model.NewEvidenceID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler. An empty origin list allows any origin.
func (s *Server) Router(corsOrigins []string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/usage", s.handleUsage)
	r.Get("/evidence", s.handleListEvidence)
	r.Post("/evidence", s.handleAddEvidence)

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", s.handleOverview)
		r.Route("/{clientID}", func(r chi.Router) {
			r.Get("/", s.handleDashboard)
			r.Get("/entries", s.handleEntries)
			r.Post("/entries/{entryID}/reconcile", s.handleReconcile)
			r.Post("/reconcile", s.handleReconcilePending)
			r.Get("/report", s.handleReport)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
