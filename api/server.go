// Package api assembles the HTTP surface: middleware, route registration
// and server lifecycle.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
)

// Server wraps the gin engine and the underlying HTTP server.
type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	rateLimiters *RateLimiters
	dependencies *types.Dependencies
}

// NewServer creates an HTTP server listening on address.
func NewServer(address string, deps *types.Dependencies) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		engine:       engine,
		rateLimiters: NewRateLimiters(),
		dependencies: deps,
		httpServer: &http.Server{
			Addr:           address,
			Handler:        engine,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
	}
}

// Engine returns the gin engine for testing.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes.
func (s *Server) Initialize() error {
	s.engine.Use(gin.Logger())
	s.engine.Use(CORS())

	var maxUpload int64
	if s.dependencies != nil && s.dependencies.Config != nil {
		maxUpload = s.dependencies.Config.Server.MaxUploadBytes
	}
	s.engine.Use(RequestSizeLimit(maxUpload))

	return RegisterRoutes(s.engine, s.dependencies, s.rateLimiters)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiters.Stop()
	return s.httpServer.Shutdown(ctx)
}
