package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sketchartist07/tempshare/internal/session"
	"github.com/sketchartist07/tempshare/pkg/config"
)

// Server wires the session manager and the contact forwarder behind the
// HTTP surface.
type Server struct {
	cfg        *config.Config
	sessions   *session.Manager
	contact    *ContactService
	httpServer *http.Server
}

// New builds the server and its router.
func New(cfg *config.Config, sessions *session.Manager, contact *ContactService) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		contact:  contact,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupRouter() *gin.Engine {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/session", handleCreateSession(s.sessions))
	router.GET("/session/:token/qr", handleSessionQR(s.cfg.Server.BaseURL))
	router.POST("/session/:token/files", handleUpload(s.sessions))
	router.GET("/session/:token/files", handleListFiles(s.sessions))
	router.GET("/session/:token/files/:name", handleDownload(s.sessions))
	router.GET("/session/:token/recover", handleRecover(s.sessions))

	router.GET("/mobile", handleMobilePage())
	router.GET("/", handleIndexPage())

	router.POST("/contact", handleContact(s.contact))

	return router
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
