package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"maks/internal/balance"
	"maks/internal/cache"
	"maks/internal/core"
	"maks/internal/log"
	"maks/internal/middleware/ratelimit"
	"maks/internal/middleware/security"
	"maks/internal/middleware/trace"
	"maks/internal/report"
	"maks/internal/secure"
	"maks/internal/services"
)

// Ledger is the ledger surface the API exposes. Implemented by
// *services.LedgerService.
type Ledger interface {
	AddEntry(ctx context.Context, sess *secure.Session, in services.EntryInput) (services.AddedEntry, error)
	DeleteEntry(ctx context.Context, sess *secure.Session, id string) error
	ListEntries(ctx context.Context, sess *secure.Session, month *core.MonthKey) ([]core.Entry, error)
	EffectiveMonthRecord(ctx context.Context, sess *secure.Session, key core.MonthKey) (services.EffectiveRecord, error)
	SaveMonthRecord(ctx context.Context, sess *secure.Session, key core.MonthKey, patch core.MonthPatch) (core.MonthRecord, error)
	GetCorrection(ctx context.Context, sess *secure.Session) (decimal.Decimal, error)
	SaveCorrection(ctx context.Context, sess *secure.Session, amount decimal.Decimal) (decimal.Decimal, error)
	Dashboard(ctx context.Context, sess *secure.Session, selected core.MonthKey) (balance.Dashboard, error)
	Year(ctx context.Context, sess *secure.Session, year int) (balance.YearSummary, error)
}

// Security is the PIN lifecycle. Implemented by *services.SecurityService.
type Security interface {
	Open(ctx context.Context, userID string) (*secure.Session, error)
	Setup(ctx context.Context, sess *secure.Session, secret, confirm string) error
	Unlock(ctx context.Context, sess *secure.Session, secret string) error
	Lock(sess *secure.Session)
}

// Reports builds and exports yearly reports. Implemented by
// *services.ReportService.
type Reports interface {
	Build(ctx context.Context, sess *secure.Session, year int) (report.Report, error)
	PushToSheets(ctx context.Context, sess *secure.Session, year int) (string, error)
}

// Pinger reports backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Ledger   Ledger
	Security Security
	Reports  Reports
	Sessions *cache.Sessions
	Ready    Pinger
	Logger   *log.Logger
	// UserID owns every session opened by this server.
	UserID string
	// RateLimit is the per-IP budget for mutating requests per minute.
	RateLimit int
}

type Server struct {
	http.Server
	ledger   Ledger
	security Security
	reports  Reports
	sessions *cache.Sessions
	ready    Pinger
	logger   *log.Logger
	userID   string
	now      func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentHTTP})
	}
	userID := deps.UserID
	if userID == "" {
		userID = "local"
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:   deps.Ledger,
		security: deps.Security,
		reports:  deps.Reports,
		sessions: deps.Sessions,
		ready:    deps.Ready,
		logger:   logger,
		userID:   userID,
		now:      time.Now,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimit}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, log.NewStructuredLogger(logger)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/security/status", s.withSession(s.handleSecurityStatus))
	mux.HandleFunc("POST /api/security/setup", s.withSession(s.handleSecuritySetup))
	mux.HandleFunc("POST /api/security/unlock", s.withSession(s.handleSecurityUnlock))
	mux.HandleFunc("POST /api/security/lock", s.withSession(s.handleSecurityLock))

	mux.HandleFunc("GET /api/entries", s.withSession(s.handleListEntries))
	mux.HandleFunc("POST /api/entries", s.withSession(s.handleAddEntry))
	mux.HandleFunc("DELETE /api/entries/{id}", s.withSession(s.handleDeleteEntry))

	mux.HandleFunc("GET /api/months/{year}/{month}", s.withSession(s.handleGetMonth))
	mux.HandleFunc("PUT /api/months/{year}/{month}", s.withSession(s.handleSaveMonth))

	mux.HandleFunc("GET /api/correction", s.withSession(s.handleGetCorrection))
	mux.HandleFunc("PUT /api/correction", s.withSession(s.handleSaveCorrection))

	mux.HandleFunc("GET /api/summary", s.withSession(s.handleSummary))
	mux.HandleFunc("GET /api/years/{year}", s.withSession(s.handleYear))

	mux.HandleFunc("GET /api/tax/net", s.handleTaxNet)
	mux.HandleFunc("GET /api/tax/gross", s.handleTaxGross)

	mux.HandleFunc("GET /api/reports/{year}/xlsx", s.withSession(s.handleReportXLSX))
	mux.HandleFunc("POST /api/reports/{year}/sheets", s.withSession(s.handleReportSheets))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// middleware wraps h, outermost first: tracing and request logging,
// security headers, the request logger, probe detection and the rate
// limit on mutating methods.
func (s *Server) middleware(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Pārāk daudz pieprasījumu").Write(w)
	}
	h = s.limiter.Middleware(s.detector.ExtractClientIP, isMutating, onLimit)(h)
	h = s.detectSuspicious(h)
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = log.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

func isMutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// detectSuspicious logs probing requests; they are still served.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter, locks every open session and shuts the
// HTTP server down. Only the first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		if s.sessions != nil {
			n := s.sessions.Close()
			s.logger.InfoContext(ctx, "Sessions locked", log.FieldCount, n)
		}
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
