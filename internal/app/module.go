package app

import (
	"context"
	"net"

	"github.com/joho/godotenv"
	"github.com/shinyyama/boilagbe-backend/internal/config"
	"github.com/shinyyama/boilagbe-backend/internal/db"
	"github.com/shinyyama/boilagbe-backend/internal/logging"
	appmw "github.com/shinyyama/boilagbe-backend/internal/middleware"
	"github.com/shinyyama/boilagbe-backend/internal/relay"
	"github.com/shinyyama/boilagbe-backend/internal/repository"
	"github.com/shinyyama/boilagbe-backend/internal/server"
	"github.com/shinyyama/boilagbe-backend/internal/service"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module composes the API process: config, storage, relay, services and the HTTP server.
func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDB,
			repository.NewMessageRepository,
			repository.NewBookRepository,
			provideHub,
			provideFanout,
			provideMessageService,
			service.NewBookService,
			provideAuth,
			server.New,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return config.Load()
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, "boilagbe-api")
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("git_sha", cfg.GitSHA)), nil
}

func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	conn, err := db.Connect(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", zap.String("name", cfg.DBName))
	return conn, nil
}

func provideHub(cfg *config.Config, logger *zap.Logger) *relay.Hub {
	return relay.NewHub(logger, cfg.RelaySendBuffer)
}

// provideFanout returns nil when REDIS_URL is unset; delivery then stays in-process.
func provideFanout(cfg *config.Config, logger *zap.Logger) (*relay.RedisFanout, error) {
	if cfg.RedisURL == "" {
		logger.Info("redis not configured; relay runs in-process only")
		return nil, nil
	}
	return relay.NewRedisFanout(context.Background(), cfg.RedisURL, logger)
}

func provideMessageService(repo repository.MessageRepository, hub *relay.Hub, logger *zap.Logger) service.MessageService {
	return service.NewMessageService(repo, hub, logger)
}

func provideAuth(cfg *config.Config, logger *zap.Logger) (*appmw.AuthMiddleware, error) {
	m, err := appmw.NewAuthMiddleware(context.Background(), cfg.FirebaseProjectID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		logger.Warn("FIREBASE_PROJECT_ID not set; routes are unauthenticated")
	}
	return m, nil
}

func registerLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, conn *gorm.DB, hub *relay.Hub, fanout *relay.RedisFanout, srv *server.Server, logger *zap.Logger) {
	fanoutCtx, stopFanout := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := db.Migrate(conn); err != nil {
				return err
			}
			logger.Info("migrations applied")

			if fanout != nil {
				hub.SetFanout(fanout)
				go fanout.Run(fanoutCtx, func(userID string, payload []byte) {
					hub.Deliver(userID, payload)
				})
				logger.Info("relay fan-out via redis enabled")
			}

			go func() {
				if err := srv.Start(net.JoinHostPort("", cfg.Port)); err != nil {
					logger.Error("http server stopped", zap.Error(err))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
			hub.Close()
			stopFanout()
			if fanout != nil {
				if err := fanout.Close(); err != nil {
					logger.Warn("redis close", zap.Error(err))
				}
			}
			if err := db.Close(conn); err != nil {
				logger.Warn("db close", zap.Error(err))
			}
			logger.Info("api stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
