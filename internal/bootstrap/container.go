package bootstrap

import (
	"fmt"

	"github.com/formcraft-io/formcraft/internal/config"
	"github.com/formcraft-io/formcraft/internal/infra/cache"
	"github.com/formcraft-io/formcraft/internal/infra/db"
	"github.com/formcraft-io/formcraft/internal/infra/logger"
	mq "github.com/formcraft-io/formcraft/internal/infra/queue"
	"github.com/formcraft-io/formcraft/internal/infra/ratelimit"
	"github.com/formcraft-io/formcraft/internal/modules/handler"
	"github.com/formcraft-io/formcraft/internal/modules/repo"
	"github.com/formcraft-io/formcraft/internal/modules/service"
	"github.com/formcraft-io/formcraft/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BuildContainer wires every dependency lazily. cfg is provided by the caller so
// the CLI can choose the config file.
func BuildContainer(cfg *config.Config) *do.Injector {
	inj := do.New()

	// config
	do.ProvideValue(inj, cfg)

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if telemetry.Enabled(cfg) {
			if err := db.RegisterOpenTelemetryPlugin(d); err != nil {
				log.Warn("gorm tracing disabled", zap.Error(err))
			}
		}
		if cfg.Database.AutoMigrate {
			if err := Migrate(d); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// Redis, nil when disabled
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		rdb, err := cache.New(cfg)
		if err != nil || rdb == nil {
			return rdb, err
		}
		if telemetry.Enabled(cfg) {
			if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
				do.MustInvoke[*zap.Logger](i).Warn("redis tracing disabled", zap.Error(err))
			}
		}
		return rdb, nil
	})

	// RabbitMQ DialFunc for connection and reconnection
	do.Provide(inj, func(i *do.Injector) (mq.DialFunc, error) {
		return mq.NewDialFunc(do.MustInvoke[*config.Config](i)), nil
	})

	// RabbitMQ Publisher, nil when disabled
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.RabbitMQ.Enabled {
			return nil, nil
		}
		dial := do.MustInvoke[mq.DialFunc](i)
		conn, err := dial()
		if err != nil {
			return nil, err
		}
		return mq.NewPublisher(conn, do.MustInvoke[*zap.Logger](i), cfg, dial)
	})

	// submission events; a nil interface switches them off
	do.Provide(inj, func(i *do.Injector) (service.EventPublisher, error) {
		p, err := do.Invoke[*mq.Publisher](i)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return p, nil
	})

	// Rate limiter, nil when disabled
	do.Provide(inj, func(i *do.Injector) (ratelimit.Limiter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var rdb *redis.Client
		if cfg.RateLimit.Backend == "redis" {
			rdb = do.MustInvoke[*redis.Client](i)
		}
		return ratelimit.New(cfg, rdb)
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.Store, error) {
		return repo.NewStore(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.UserService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewUserService(do.MustInvoke[repo.Store](i).Users(), cfg.Root.SecretPepper), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.FormService, error) {
		return service.NewFormService(
			do.MustInvoke[repo.Store](i),
			do.MustInvoke[service.UserService](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.SubmissionService, error) {
		pub, err := do.Invoke[service.EventPublisher](i)
		if err != nil {
			return nil, fmt.Errorf("submission events: %w", err)
		}
		return service.NewSubmissionService(
			do.MustInvoke[repo.Store](i),
			pub,
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.FormHandler, error) {
		return handler.NewFormHandler(do.MustInvoke[service.FormService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.SubmissionHandler, error) {
		svc, err := do.Invoke[service.SubmissionService](i)
		if err != nil {
			return nil, err
		}
		return handler.NewSubmissionHandler(svc), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.UserHandler, error) {
		return handler.NewUserHandler(do.MustInvoke[service.UserService](i)), nil
	})
	return inj
}
