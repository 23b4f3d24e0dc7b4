package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metadesk-backend/internal/agent"
	"metadesk-backend/internal/auth"
	"metadesk-backend/internal/engine"
	"metadesk-backend/internal/instrument"
	"metadesk-backend/internal/store"
	"metadesk-backend/internal/views"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	rt, err := load(rootOpts)
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck
	cfg := rt.cfg

	db, models, err := rt.openModels(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	vs, closeViews, err := openViews(ctx, rt)
	if err != nil {
		return err
	}
	defer closeViews()

	tool, err := newTool(rt, engine.AgentModels(models))
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: engine.ErrorHandler(rt.logger),
	})
	app.Use(recover.New())
	app.Use(instrument.Middleware(rt.logger))

	engine.RegisterHealth(app)
	h := engine.NewHandler(rt.registry, models, vs, tool, engine.Options{
		DefaultSize:           cfg.Query.DefaultSize,
		CaseInsensitiveSearch: cfg.Query.CaseInsensitiveSearch,
		ExportMaxRows:         cfg.Export.MaxRows,
	}, rt.logger)
	engine.RegisterAgentRoutes(app, h, auth.RequireAPIKey(cfg.Agent.APIKeyHash))
	engine.RegisterRoutes(app, h, auth.AuthMiddleware(cfg.JWTSecret))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		rt.logger.Info("starting server", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openViews uses Redis when configured, process memory otherwise.
func openViews(ctx context.Context, rt *env) (views.Store, func(), error) {
	r := rt.cfg.Redis
	if r.Addr == "" {
		rt.logger.Warn("redis not configured, view overrides are kept in memory")
		return views.NewMemoryStore(), func() {}, nil
	}
	client, err := views.Connect(ctx, r.Addr, r.Password, r.DB)
	if err != nil {
		return nil, nil, err
	}
	ttl := time.Duration(r.TTLHours) * time.Hour
	return views.NewRedisStore(client, ttl), func() { client.Close() }, nil
}

func newTool(rt *env, models agent.Models) (*agent.Tool, error) {
	cfg := rt.cfg
	return agent.New(rt.registry, models,
		agent.WithLimits(cfg.Agent.MaxTake, cfg.Agent.DefaultTake),
		agent.WithLocale(cfg.Metadata.DefaultLocale),
		agent.WithCaseInsensitiveSearch(cfg.Query.CaseInsensitiveSearch),
		agent.WithLogger(rt.logger),
	)
}

// noModels backs a tool that is only asked for its description.
var noModels = agent.ModelsFunc(func(entity string) (agent.ModelClient, error) {
	return nil, store.ErrNotFound
})
