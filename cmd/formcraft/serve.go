package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/formcraft-io/formcraft/internal/bootstrap"
	"github.com/formcraft-io/formcraft/internal/infra/cache"
	mq "github.com/formcraft-io/formcraft/internal/infra/queue"
	"github.com/formcraft-io/formcraft/internal/infra/ratelimit"
	"github.com/formcraft-io/formcraft/internal/modules/handler"
	"github.com/formcraft-io/formcraft/internal/router"
	"github.com/formcraft-io/formcraft/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// tracing first so the gorm and redis plugins pick up the global provider
	if _, err := telemetry.SetupTracing(cfg); err != nil {
		return err
	}
	if _, err := telemetry.SetupMetrics(cfg); err != nil {
		return err
	}

	inj := bootstrap.BuildContainer(cfg)
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	gdb, err := do.Invoke[*gorm.DB](inj)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	limiter, err := do.Invoke[ratelimit.Limiter](inj)
	if err != nil {
		return fmt.Errorf("build rate limiter: %w", err)
	}

	deps, err := routerDeps(inj)
	if err != nil {
		return err
	}
	deps.Config, deps.Log, deps.Limiter = cfg, log, limiter

	engine, err := router.NewRouter(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}

	if pub, _ := do.Invoke[*mq.Publisher](inj); pub != nil {
		if err := pub.Close(); err != nil {
			log.Warn("close rabbitmq publisher", zap.Error(err))
		}
	}
	if rdb, _ := do.Invoke[*redis.Client](inj); rdb != nil {
		_ = cache.Close(rdb)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", zap.Error(err))
	}
	return nil
}

// routerDeps resolves the handlers. A broken dependency such as an unreachable
// broker surfaces here as an error instead of a panic.
func routerDeps(inj *do.Injector) (router.RouterDeps, error) {
	var d router.RouterDeps
	var err error
	if d.FormHandler, err = do.Invoke[*handler.FormHandler](inj); err != nil {
		return d, fmt.Errorf("build form handler: %w", err)
	}
	if d.SubmissionHandler, err = do.Invoke[*handler.SubmissionHandler](inj); err != nil {
		return d, fmt.Errorf("build submission handler: %w", err)
	}
	if d.UserHandler, err = do.Invoke[*handler.UserHandler](inj); err != nil {
		return d, fmt.Errorf("build user handler: %w", err)
	}
	return d, nil
}
