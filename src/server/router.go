// Package server exposes the request pipeline over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Protocol-Lattice/quizbot/src/logger"
)

func SolveRouter(rg *gin.RouterGroup, h *SolveHandler) {
	rg.POST("/solve", h.Solve)
}

// NewRouter builds the engine with all routes mounted.
func NewRouter(p Handler, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.GET("/healthz", Healthz)
	SolveRouter(r.Group("/v1"), NewSolveHandler(p, log))
	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Serve runs the engine on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, engine http.Handler, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
