// Package api exposes the form services over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"

	"agency-forms/config"
	"agency-forms/logger"
	"agency-forms/models"
	"agency-forms/service"
)

// ContactSubmitter handles contact form submissions.
type ContactSubmitter interface {
	CheckConfig() error
	Submit(ctx context.Context, sub models.ContactSubmission) (service.ContactResult, error)
}

// WaitingListJoiner handles waiting list signups.
type WaitingListJoiner interface {
	Join(ctx context.Context, entry models.WaitingListEntry) (models.WaitingListEntry, error)
}

type Server struct {
	router      *gin.Engine
	handler     http.Handler
	config      *config.Config
	contact     ContactSubmitter
	waitingList WaitingListJoiner
	log         *slog.Logger
	server      *http.Server
	listener    net.Listener
}

func NewServer(cfg *config.Config, contact ContactSubmitter, waitingList WaitingListJoiner, log *slog.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = slog.Default()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	s := &Server{
		router:      router,
		config:      cfg,
		contact:     contact,
		waitingList: waitingList,
		log:         log.With(logger.Component("http")),
	}
	s.setupRoutes()

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader, "Retry-After"}),
	)(router)

	// The CORS handler answers every OPTIONS request itself. Only real
	// preflights go there; other OPTIONS requests reach the routes and get
	// the usual method checks.
	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions && !isPreflight(r) {
			router.ServeHTTP(w, r)
			return
		}
		cors.ServeHTTP(w, r)
	})
	return s
}

func isPreflight(r *http.Request) bool {
	return r.Header.Get("Origin") != "" && r.Header.Get("Access-Control-Request-Method") != ""
}

func (s *Server) setupRoutes() {
	s.router.Use(
		requestID(),
		requestLogger(s.log),
		gin.CustomRecovery(s.recover),
		limitBody(maxBodyBytes),
	)

	s.router.GET("/health", s.healthCheck)
	s.router.Any("/api/contact", s.handleContact)
	s.router.POST("/api/waiting-list", s.handleWaitingList)

	s.router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address. Bind errors are returned here so the
// process can fail before serving.
func (s *Server) Start() error {
	addr := s.config.ListenAddr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.config.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("server starting", slog.String("addr", ln.Addr().String()), slog.String("env", s.config.App.Env))
	return nil
}

// Serve blocks until the server is shut down. It returns nil after a
// graceful Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server not started")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     s.config.App.Name,
		"environment": s.config.App.Env,
	})
}

func (s *Server) recover(c *gin.Context, rec any) {
	s.log.Error("panic recovered",
		slog.Any("panic", rec),
		logger.RequestID(c.GetString(requestIDKey)),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
