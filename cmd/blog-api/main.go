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
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/config"
	"github.com/goliatone/go-blog-auth/middleware/pasetoware"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", os.Getenv("API_CONFIG"), "path to a YAML configuration file")
		port       = pflag.IntP("port", "p", 0, "HTTP port, overrides API_PORT")
		logLevel   = pflag.String("log-level", "", "log level: debug, info, warn, error")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "blog-api: %v\n", err)
		os.Exit(1)
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger, err := newZapLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "blog-api: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("blog-api stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Debug("configuration loaded", zap.Any("config", print.MaybePrettyJSON(cfg)))

	keys, err := cfg.KeyPair()
	if err != nil {
		return fmt.Errorf("paseto keys: %w", err)
	}

	db, err := auth.OpenDB(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	app, err := newApp(ctx, cfg, db, keys, logger)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env))
		errc <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, db *bun.DB, keys auth.KeyPair, logger *zap.Logger) (*fiber.App, error) {
	authLogger := newAuthLogger(logger, "auth")

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := repo.CreateSchema(schemaCtx); err != nil {
		return nil, err
	}

	tokens := auth.NewTokenService(keys, cfg.Lifespan(), auth.WithTokenLogger(authLogger))

	authenticator := auth.NewRequestAuthenticator(tokens, repo.Users()).
		WithLogger(authLogger)

	m := newMetrics()

	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "blog-api",
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler(logger),
		}))

		app.Use(m.middleware())

		if cfg.Metrics.Enabled {
			app.Get(cfg.Metrics.Path, m.handler())
		}
		return app
	})

	protected := pasetoware.New(pasetoware.Config{
		Authenticator: authenticator,
		OnDecision:    m.observeDecision,
	})

	auth.RegisterAuthRoutes(srv.Router(), protected,
		auth.WithControllerRepository(repo),
		auth.WithControllerTokens(tokens),
		auth.WithControllerLogger(newAuthLogger(logger, "http")),
		auth.WithControllerUserProvider(
			auth.NewUserProvider(repo.Users()).WithLogger(authLogger),
		),
		auth.WithControllerActivitySink(newActivitySink(logger, m)),
		auth.WithControllerDebug(cfg.IsDevelopment()),
	)

	return app, nil
}

// errorHandler renders errors that escaped the route handlers
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(code).JSON(fiber.Map{"error": "internal server error"})
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
