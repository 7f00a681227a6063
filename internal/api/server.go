// Package api exposes the scheduler over HTTP: read endpoints for workers,
// shifts and schedules, plus triggers for generation and feedback intake.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/config"
	"github.com/kylemckinstry/rostretto/internal/cycle"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Port int
	Out  io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("api: db is required")
	}
	if opts.Cfg == nil {
		return fmt.Errorf("api: config is required")
	}
	if opts.Port <= 0 {
		opts.Port = opts.Cfg.Server.Port
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	orch := &cycle.Orchestrator{DB: opts.DB, Cfg: opts.Cfg, Out: opts.Out}
	registerRoutes(router, opts.DB, orch)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
