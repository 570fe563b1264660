package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
	"github.com/Octopus-Moneycoach/coaching-ai/db"
	"github.com/Octopus-Moneycoach/coaching-ai/events"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/Octopus-Moneycoach/coaching-ai/metrics"
	"github.com/Octopus-Moneycoach/coaching-ai/notifications"
	"github.com/Octopus-Moneycoach/coaching-ai/vendors"
	"github.com/Octopus-Moneycoach/coaching-ai/workers/casecheck"
	"github.com/Octopus-Moneycoach/coaching-ai/workers/inbox"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Server owns and coordinates all application components
type Server struct {
	cfg *Config

	// Components (owned by server)
	database     *db.DB
	notifService *notifications.Service
	checklist    *checklist.Checklist
	pipeline     *assessment.Pipeline
	knowledge    *vendors.KnowledgeBase
	search       *vendors.MeiliClient
	publisher    *events.Publisher
	worker       *casecheck.Worker
	inbox        *inbox.Watcher
	metrics      *metrics.Metrics

	// Shutdown context - cancelled when server is shutting down.
	// Long-running handlers (SSE) should listen to this.
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	// HTTP
	router *gin.Engine
	http   *http.Server
}

// Option customizes server construction
type Option func(*options)

type options struct {
	completer assessment.Completer
}

// WithCompleter replaces the OpenAI completer, e.g. with a local model or a test double
func WithCompleter(c assessment.Completer) Option {
	return func(o *options) { o.completer = c }
}

// New creates a new server with all components initialized
func New(cfg *Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:            cfg,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
		metrics:        metrics.DefaultMetrics,
	}

	// 1. Load checklist
	cl, err := checklist.Load(cfg.ChecklistPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load checklist: %w", err)
	}
	s.checklist = cl
	log.Info().Str("checklist", cl.Name).Int("checks", cl.Len()).Msg("checklist loaded")

	// 2. Build the assessment pipeline
	openai := vendors.GetOpenAIClient()
	completer := o.completer
	if completer == nil {
		if openai == nil {
			cancel()
			return nil, errors.New("no language model configured: set OPENAI_API_KEY")
		}
		completer = openai
	}

	pipelineOpts := []assessment.Option{assessment.WithObserver(s.metrics)}
	s.knowledge = vendors.NewKnowledgeBase(vendors.GetQdrantClient(), openai, questions(cl), cfg.KBExamplesPerCheck)
	if s.knowledge != nil {
		pipelineOpts = append(pipelineOpts, assessment.WithExamples(s.knowledge))
	}

	s.pipeline, err = assessment.NewPipeline(completer, cfg.ToPipelineConfig(), pipelineOpts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	// 3. Open database
	log.Info().Msg("initializing database")
	s.database, err = db.Open(cfg.ToDBConfig())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 4. Create notifications service
	s.notifService = notifications.NewService()

	// 5. Downstream sinks
	s.publisher = events.New(cfg.ToEventsConfig())
	s.search = vendors.GetMeiliClient()

	deps := casecheck.Deps{
		DB:        s.database,
		Notif:     s.notifService,
		Assessor:  s.pipeline,
		Checklist: cl,
		Publisher: s.publisher,
		Metrics:   s.metrics,
	}
	if archiver := vendors.GetOSSArchiver(); archiver != nil {
		deps.Archiver = archiver
	}
	if s.search != nil {
		deps.Indexer = s.search
	}

	// 6. Create case-check worker
	log.Info().Msg("initializing case-check worker")
	s.worker = casecheck.NewWorker(cfg.ToWorkerConfig(), deps)

	// 7. Inbox watcher feeds the worker
	if cfg.InboxDir != "" {
		s.inbox = inbox.NewWatcher(cfg.ToInboxConfig(), s.worker)
	}

	// 8. Setup HTTP router
	s.setupRouter()

	log.Info().Msg("server initialized successfully")
	return s, nil
}

// questions maps check ids to the text embedded for example retrieval
func questions(cl *checklist.Checklist) map[string]string {
	out := make(map[string]string, cl.Len())
	for _, def := range cl.Checks() {
		if def.Prompt != "" {
			out[def.ID] = def.Prompt
		}
	}
	return out
}

// setupRouter creates and configures the Gin router
func (s *Server) setupRouter() {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger())

	if !s.cfg.IsDevelopment() {
		s.router.Use(s.securityHeadersMiddleware())
	}

	// Gzip compression (skip SSE)
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/notifications/stream",
	})))

	s.router.SetTrustedProxies(nil)

	// Note: API routes are set up by main.go to avoid import cycles
}

// securityHeadersMiddleware adds security headers for production
func (s *Server) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// StartBackground starts the worker and, when configured, the inbox watcher
func (s *Server) StartBackground() error {
	log.Info().Msg("starting server components")

	s.worker.Start()

	if s.inbox != nil {
		if err := s.inbox.Start(); err != nil {
			return fmt.Errorf("failed to start inbox watcher: %w", err)
		}
	}
	return nil
}

// Start starts all background services and the HTTP server
func (s *Server) Start() error {
	if err := s.StartBackground(); err != nil {
		return err
	}

	s.http = &http.Server{
		Addr:     fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:  s.router,
		ErrorLog: log.StdErrorLogger(), // Route Go's internal HTTP errors through zerolog
	}

	log.Info().
		Str("addr", s.http.Addr).
		Str("env", s.cfg.Env).
		Msg("HTTP server starting")

	// Start HTTP server (blocks)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	// 1. Signal long-running handlers (SSE) to stop
	s.shutdownCancel()
	time.Sleep(100 * time.Millisecond)

	// 2. Close notification service to cleanly disconnect SSE clients
	s.notifService.Shutdown()

	// 3. Shutdown HTTP server
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Stop background services (in reverse order of startup)
	if s.inbox != nil {
		s.inbox.Stop()
	}
	s.worker.Stop()

	if err := s.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("kafka publisher close error")
	}

	// Close database last
	if err := s.database.Close(); err != nil {
		log.Error().Err(err).Msg("database close error")
		return err
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

// Component accessors for API handlers
func (s *Server) DB() *db.DB                            { return s.database }
func (s *Server) Notifications() *notifications.Service { return s.notifService }
func (s *Server) Checklist() *checklist.Checklist       { return s.checklist }
func (s *Server) Pipeline() *assessment.Pipeline        { return s.pipeline }
func (s *Server) KnowledgeBase() *vendors.KnowledgeBase { return s.knowledge }
func (s *Server) Search() *vendors.MeiliClient          { return s.search }
func (s *Server) Worker() *casecheck.Worker             { return s.worker }
func (s *Server) Router() *gin.Engine                   { return s.router }
func (s *Server) ShutdownContext() context.Context      { return s.shutdownCtx }
