// Package httpapi exposes estimate processing over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

// shutdownTimeout bounds graceful shutdown after the context is done.
const shutdownTimeout = 10 * time.Second

// maxBodyBytes limits request bodies.
const maxBodyBytes = 32 << 20

// Ports are the services the API drives. Runs may be nil.
type Ports struct {
	Estimate driving.EstimateService
	Runs     driving.RunService
}

// Server is the HTTP API.
type Server struct {
	ports  *Ports
	engine *gin.Engine
	log    *logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer builds the router.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if ports == nil || ports.Estimate == nil {
		return nil, errors.New("estimate service is required")
	}
	s := &Server{ports: ports, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestContext())

	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/estimates", s.processEstimate)
		v1.POST("/reconcile", s.reconcile)
		v1.POST("/parse", s.parse)
		v1.GET("/rules", s.listRules)
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id", s.getRun)
		v1.GET("/runs/:id/document", s.getRunDocument)
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http.listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

// requestContext tags each request with an id and logs its outcome.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

		start := time.Now()
		c.Next()
		s.log.Info("http.request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
