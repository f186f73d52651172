package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pairprobe/internal/server"
	"github.com/alanyoungcy/pairprobe/internal/server/handler"
	"github.com/alanyoungcy/pairprobe/internal/server/middleware"
	"github.com/alanyoungcy/pairprobe/internal/server/ws"
)

// shutdownGrace bounds graceful HTTP shutdown after ctx cancellation.
const shutdownGrace = 10 * time.Second

// WorkerMode runs the probe worker loop (plus the record archiver when
// configured) until the context is cancelled.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Worker.Run(ctx)
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	return g.Wait()
}

// DashboardMode serves the read-only HTTP API and the WebSocket status
// feed until the context is cancelled.
func (a *App) DashboardMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	a.runDashboard(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the worker pipeline and the dashboard in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Worker.Run(ctx)
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}
	a.runDashboard(ctx, g, deps)

	return g.Wait()
}

// runDashboard starts the WebSocket hub, the HTTP server, and a
// shutdown watcher on the given group.
func (a *App) runDashboard(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(time.Now()),
		Records: handler.NewRecordHandler(deps.Records, a.logger),
	}
	if deps.History != nil {
		handlers.Runs = handler.NewRunHandler(deps.History, a.logger)
	}

	hub := ws.NewHub(deps.Status, a.cfg.Mode, a.logger)

	var limiter middleware.RateLimiter
	if deps.RateLimiter != nil {
		limiter = deps.RateLimiter
	}
	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimitPerSec,
	}, handlers, hub, limiter, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
