package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/backend"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/storage"
	appweb "kakeibo/web"
)

// SubmissionLister reads the submission journal.
type SubmissionLister interface {
	Recent(ctx context.Context, limit int) ([]storage.Submission, error)
}

// Server serves the entry form page and the JSON API.
type Server struct {
	http.Server

	backend   backend.Backend
	journal   SubmissionLister
	templates *template.Template
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime          time.Time
	submissions     int64
	failures        int64
	entriesAppended int64
}

type serverOptions struct {
	journal    SubmissionLister
	logger     *log.Logger
	rateLimit  int
	templates  fs.FS
	static     fs.FS
	trustCIDRs []string
}

// Option configures a Server.
type Option func(*serverOptions)

// WithJournal exposes the submission journal at /api/submissions.
func WithJournal(j SubmissionLister) Option {
	return func(o *serverOptions) { o.journal = j }
}

func WithLogger(l *log.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithRateLimit sets the POST requests allowed per client per minute.
func WithRateLimit(perMinute int) Option {
	return func(o *serverOptions) { o.rateLimit = perMinute }
}

// WithAssets replaces the embedded templates and static files.
func WithAssets(templates, static fs.FS) Option {
	return func(o *serverOptions) {
		o.templates = templates
		o.static = static
	}
}

// WithTrustedProxies adds networks allowed to set forwarding headers.
func WithTrustedProxies(cidrs ...string) Option {
	return func(o *serverOptions) { o.trustCIDRs = append(o.trustCIDRs, cidrs...) }
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, b backend.Backend, opts ...Option) *Server {
	o := serverOptions{
		rateLimit: ratelimit.DefaultConfig().RequestsPerMinute,
		templates: appweb.TemplatesFS,
		static:    appweb.StaticFS,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		backend:    b,
		journal:    o.journal,
		logger:     o.logger.WithComponent(log.ComponentHTTP),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: o.rateLimit}),
		detector:   security.NewDetector(),
		appMetrics: appMetrics{uptime: time.Now()},
	}
	for _, cidr := range o.trustCIDRs {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, o.logger,
		trace.WithPanicHandler(func(w http.ResponseWriter, r *http.Request) {
			InternalServerError(core.MsgProcessingFailed, "").Write(w)
		}))

	t, err := template.ParseFS(o.templates, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate)
	}
	s.templates = t

	if sub, err := fs.Sub(o.static, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limitPOST := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited, http.MethodPost)

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.Handle("/api/submit", limitPOST(http.HandlerFunc(s.handleSubmit)))
	mux.HandleFunc("/api/options", s.handleOptions)
	mux.HandleFunc("/api/submissions", s.handleSubmissions)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(headers.Middleware(s.detector.Middleware(o.logger)(mux)))

	return s
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
