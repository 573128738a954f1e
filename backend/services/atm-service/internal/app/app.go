package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libdb "smartatm/backend/libs/db"
	libredis "smartatm/backend/libs/redis"
	"smartatm/backend/services/atm-service/internal/atm"
	"smartatm/backend/services/atm-service/internal/bank"
	appconfig "smartatm/backend/services/atm-service/internal/config"
	"smartatm/backend/services/atm-service/internal/console"
	"smartatm/backend/services/atm-service/internal/credential"
	"smartatm/backend/services/atm-service/internal/db"
	"smartatm/backend/services/atm-service/internal/http"
	"smartatm/backend/services/atm-service/internal/http/handlers"
	"smartatm/backend/services/atm-service/internal/http/middleware"
	redisstore "smartatm/backend/services/atm-service/internal/redis"
	"smartatm/backend/services/atm-service/internal/service"
)

// App wires dependencies for the teller.
type App struct {
	machine *atm.Machine
	driver  *console.Driver
	server  *httpserver.Server
	db      *sql.DB
	redis   *redis.Client
	logger  *zap.Logger
}

// New builds application graph. The console driver reads in and writes out.
func New(ctx context.Context, cfg *appconfig.Config, in io.Reader, out io.Writer, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	hasher := credential.NewBcryptHasher(cfg.Store.BcryptCost)
	store, err := a.openStore(ctx, cfg, hasher)
	if err != nil {
		a.Close()
		return nil, err
	}
	guarded := bank.NewGuarded(store, cfg.BreakerSettings(), logger)

	seeds, err := cfg.SeedAccounts()
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := bank.Seed(ctx, guarded, seeds, logger); err != nil {
		a.Close()
		return nil, err
	}

	var opts []atm.Option
	if cfg.Redis.Addr != "" {
		client, err := libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, session mirror disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.redis = client
			mirror := redisstore.NewSessionMirror(client, cfg.Redis.SessionTTL)
			a.clearStaleSession(ctx, mirror)
			opts = append(opts, atm.WithMirror(mirror))
		}
	}

	a.machine = atm.New(guarded, logger, opts...)
	a.driver = console.NewDriver(a.machine, in, out, logger)

	if cfg.HTTP.Enabled {
		routes := httpserver.Routes{
			Health:  handlers.NewHealthHandler(guarded),
			Metrics: promhttp.Handler(),
			Session: handlers.NewSessionHandler(a.machine),
		}
		if cfg.AdminEnabled() {
			tokens := service.NewTokenService(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
			routes.AdminAuth = middleware.RequireRole(tokens, service.RoleAdmin)
			routes.ListAccounts = handlers.NewListAccountsHandler(guarded, logger)
			routes.CreateAccount = handlers.NewCreateAccountHandler(guarded, logger)
			routes.DeleteAccount = handlers.NewDeleteAccountHandler(guarded, logger)
			routes.ListTransactions = handlers.NewListTransactionsHandler(guarded, logger)
		}
		a.server = httpserver.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes, logger), logger)
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *appconfig.Config, hasher credential.Hasher) (bank.Store, error) {
	if cfg.Store.Driver == appconfig.DriverMemory {
		a.logger.Info("using in-memory account store")
		return bank.NewMemoryBank(hasher), nil
	}

	sqlDB, err := libdb.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("app: open %s store: %w", cfg.Store.Driver, err)
	}
	a.db = sqlDB
	if err := db.Migrate(ctx, sqlDB); err != nil {
		return nil, err
	}
	a.logger.Info("using sql account store", zap.String("driver", cfg.Store.Driver))
	return bank.NewSQLBank(sqlDB, hasher), nil
}

// clearStaleSession drops a snapshot left by a previous process; a fresh machine starts idle.
func (a *App) clearStaleSession(ctx context.Context, mirror *redisstore.SessionMirror) {
	snap, err := mirror.Get(ctx)
	if errors.Is(err, redisstore.ErrNoSession) {
		return
	}
	if err != nil {
		a.logger.Warn("failed to read mirrored session", zap.Error(err))
		return
	}
	a.logger.Warn("clearing stale mirrored session",
		zap.String("session_id", snap.SessionID),
		zap.String("state", string(snap.State)),
		zap.Time("updated_at", snap.UpdatedAt))
	if err := mirror.Clear(ctx); err != nil {
		a.logger.Warn("failed to clear mirrored session", zap.Error(err))
	}
}

// Machine exposes the teller state machine.
func (a *App) Machine() *atm.Machine {
	return a.machine
}

// Run drives the console and serves the ops API until either stops or ctx is cancelled.
// Leaving the console shuts the server down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return a.driver.Run(gctx)
	})
	if a.server != nil {
		g.Go(func() error {
			return a.server.Run(gctx)
		})
	}
	return g.Wait()
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
