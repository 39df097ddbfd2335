package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	apihandler "github.com/newthinker/cryptodash/internal/api/handler/api"
	"github.com/newthinker/cryptodash/internal/api/handler/web"
	"github.com/newthinker/cryptodash/internal/api/middleware"
	"github.com/newthinker/cryptodash/internal/api/response"
	"github.com/newthinker/cryptodash/internal/api/session"
	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/chart"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/live"
	"github.com/newthinker/cryptodash/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// Server represents the HTTP server for the dashboard
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	app        *app.App
	sessions   *session.Registry
	upgrader   websocket.Upgrader
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	TemplatesDir string
	APIKey       string
	MaxSessions  int
	MetricsPath  string // empty disables /metrics
}

// Dependencies holds the components the handlers serve.
type Dependencies struct {
	App     *app.App
	Metrics *metrics.Registry // may be nil
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("server needs an app"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	s := &Server{
		logger:   logger,
		mux:      mux,
		app:      deps.App,
		sessions: session.NewRegistry(cfg.MaxSessions),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	// Set up routes
	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger.Named("http"))(handler)

	// No WriteTimeout: it would cut off the live websocket.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, s.app, s.logger.Named("web"))
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}
	s.mux.HandleFunc("GET /{$}", webHandler.Catalog)
	s.mux.HandleFunc("GET /live", webHandler.Live)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	coins := apihandler.NewCoinsHandler(s.app, s.logger)
	s.mux.HandleFunc("GET /api/v1/coins", coins.List)
	s.mux.HandleFunc("POST /api/v1/coins/{id}/info", coins.MoreInfo)
	s.mux.HandleFunc("POST /api/v1/coins/{id}/back", coins.Back)

	sel := apihandler.NewSelectionHandler(s.app, s.logger)
	s.mux.HandleFunc("GET /api/v1/selection", sel.List)
	s.mux.HandleFunc("POST /api/v1/selection", sel.Add)
	s.mux.HandleFunc("DELETE /api/v1/selection/{id}", sel.Remove)
	s.mux.HandleFunc("POST /api/v1/selection/replace", sel.Replace)

	s.mux.HandleFunc("GET /ws/live", s.handleLive)

	// Operator routes
	auth := middleware.APIKeyAuth(cfg.APIKey, s.logger)
	liveHandler := apihandler.NewLiveHandler(s.sessions, s.app.Archive(), s.logger)
	s.mux.Handle("GET /api/v1/live", auth(http.HandlerFunc(liveHandler.List)))
	s.mux.Handle("GET /api/v1/live/{id}", auth(http.HandlerFunc(liveHandler.Get)))
	s.mux.Handle("GET /api/v1/live/{id}/chart/{file}", auth(http.HandlerFunc(liveHandler.Chart)))

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, auth(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	return nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Sessions returns the live session registry.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server. Live sessions are stopped first
// since hijacked websocket connections are not tracked by http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server", zap.Int("live_sessions", s.sessions.Active()))
	s.sessions.StopAll()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.app.Stats(r.Context())
	stats["status"] = "ok"
	stats["live_sessions"] = s.sessions.Active()
	response.JSON(w, http.StatusOK, stats)
}

// handleLive runs one live session for the lifetime of the websocket.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream := chart.NewStream(conn, wsWriteTimeout)
	id := s.sessions.NewID()
	log := s.logger.With(zap.String("session", id))

	onStop := func(err error) {
		if err == nil {
			return
		}
		if werr := stream.Error(live.Message(err)); werr != nil {
			log.Debug("sending stop message failed", zap.Error(werr))
		}
	}

	sess, err := s.app.NewLiveSession(ctx, id,
		stream.Surface(live.KindPercent), stream.Surface(live.KindPrice), onStop)
	if errors.Is(err, core.ErrNoSelection) {
		_ = stream.Empty(app.NoSelectionMessage)
		return
	}
	if err != nil {
		log.Warn("creating live session failed", zap.Error(err))
		_ = stream.Error(live.Message(err))
		return
	}

	if err := s.sessions.Add(sess); err != nil {
		log.Warn("registering live session failed", zap.Error(err))
		_ = stream.Error(live.Message(err))
		return
	}
	if err := stream.Hello(id, sess.Symbols()); err != nil {
		s.sessions.Remove(id)
		return
	}
	if err := sess.Start(ctx); err != nil {
		log.Warn("starting live session failed", zap.Error(err))
		s.sessions.Remove(id)
		_ = stream.Error(live.Message(err))
		return
	}

	// The page never sends anything; reading only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Debug("live client disconnected")
			sess.Stop()
			return
		case <-sess.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-ping.C:
			if err := stream.Ping(); err != nil {
				sess.Stop()
				return
			}
		}
	}
}
