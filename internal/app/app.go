// Package app is the composition root of the storysync daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/storysync/internal/config"
	"github.com/MrSnakeDoc/storysync/internal/connectivity"
	"github.com/MrSnakeDoc/storysync/internal/events"
	"github.com/MrSnakeDoc/storysync/internal/gateway"
	"github.com/MrSnakeDoc/storysync/internal/httpserver"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/logger"
	"github.com/MrSnakeDoc/storysync/internal/redis"
	"github.com/MrSnakeDoc/storysync/internal/scheduler"
	"github.com/MrSnakeDoc/storysync/internal/store"
	"github.com/MrSnakeDoc/storysync/internal/submission"
	"github.com/MrSnakeDoc/storysync/internal/syncer"
	"github.com/MrSnakeDoc/storysync/internal/version"
)

type App struct {
	cfg    *config.Config
	logger logger.Logger

	store        store.Store
	gateway      *gateway.Client
	monitor      *connectivity.Monitor
	prober       *connectivity.Prober
	engine       *syncer.Engine
	orchestrator *submission.Orchestrator
	hub          *events.Hub
	detachHub    func()
	janitor      *scheduler.PendingJanitor
	server       *httpserver.Server
}

// New wires every component. It fails fast when the store cannot be opened.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	var redisClient *goredis.Client
	if cfg.StoreEngine == store.EngineRedis {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		c, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = c
	}

	st, err := store.NewByEngine(ctx, store.Options{
		Engine:      cfg.StoreEngine,
		SQLitePath:  cfg.SQLitePath,
		RedisClient: redisClient,
	})
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreEngine, err)
	}
	loggerClient.Info("local store ready", logger.String("engine", cfg.StoreEngine))

	gw := gateway.NewClient(cfg.APIBaseURL, cfg.APITimeout, gateway.NewTokenSource(cfg.AuthToken, cfg.TokenFile))

	// Optimistic until the first probe answers
	monitor := connectivity.NewMonitor(true)
	prober := connectivity.NewProber(cfg.ProbeURL, cfg.ProbeInterval, cfg.ProbeTimeout, monitor, loggerClient)

	engine := syncer.New(st, gw, monitor, loggerClient, cfg.SyncInterval)

	hub := events.NewHub(loggerClient)
	detach := hub.Attach(engine, monitor)

	orchestrator := submission.New(gw, monitor, st, hub, loggerClient, submission.Options{
		AllowGuest: cfg.AllowGuest,
	})

	janitor := scheduler.NewPendingJanitor(st, loggerClient, cfg.JanitorInterval, cfg.SyncedRetention)

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RateLimitBurst: cfg.RateLimitBurst,
		RateLimitRate:  cfg.RateLimitPerMin,
		RequestTimeout: cfg.APITimeout + 15*time.Second,
		Store:          st,
		Submitter:      orchestrator,
		Syncer:         engine,
		Connectivity:   monitor,
		Stories:        gw,
		Events:         hub,
	}

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		store:        st,
		gateway:      gw,
		monitor:      monitor,
		prober:       prober,
		engine:       engine,
		orchestrator: orchestrator,
		hub:          hub,
		detachHub:    detach,
		janitor:      janitor,
		server:       httpserver.New(cfg, loggerClient, d),
	}, nil
}

func (a *App) Store() store.Store                     { return a.store }
func (a *App) Gateway() *gateway.Client               { return a.gateway }
func (a *App) Monitor() *connectivity.Monitor         { return a.monitor }
func (a *App) Engine() *syncer.Engine                 { return a.engine }
func (a *App) Orchestrator() *submission.Orchestrator { return a.orchestrator }

// CheckConnectivity probes the remote API once and updates the signal.
func (a *App) CheckConnectivity(ctx context.Context) bool {
	return a.prober.Check(ctx)
}

// Run serves the local API until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.logger.Infof("🚀 Starting %s on %s", version.String(), ln.Addr())

	a.prober.Start(ctx)
	a.logger.Info("connectivity prober started",
		logger.Duration("interval", a.cfg.ProbeInterval),
		logger.Bool("online", a.monitor.IsOnline()))

	a.engine.Start(ctx)
	a.logger.Info("sync engine started", logger.Duration("interval", a.cfg.SyncInterval))

	a.janitor.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Serve(ln); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.prober.Stop()
	a.janitor.Stop()
	a.engine.Stop()
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
	}

	if err := a.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if runErr == nil {
		a.logger.Info("✅ storysync stopped cleanly")
	}
	return runErr
}

// Close releases the store. Run calls it on shutdown.
func (a *App) Close() error {
	if a.detachHub != nil {
		a.detachHub()
		a.detachHub = nil
	}
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	if err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	a.logger.Info("✅ store closed cleanly")
	return nil
}
