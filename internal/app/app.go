// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Corphon/NovelBuilder/internal/api"
	"github.com/Corphon/NovelBuilder/internal/auth"
	"github.com/Corphon/NovelBuilder/internal/config"
	"github.com/Corphon/NovelBuilder/internal/di"
	"github.com/Corphon/NovelBuilder/internal/services"
	"github.com/Corphon/NovelBuilder/internal/storage"
	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/gin-gonic/gin"
)

// fixed signing key used in debug mode when none is configured
const devAuthSecret = "dev_auth_key_for_testing_purposes_only_"

// how long shutdown waits for in-flight requests
const shutdownTimeout = 30 * time.Second

// App holds every component of one server instance.
type App struct {
	config    *config.Config
	logger    *utils.Logger
	container *di.Container
	router    *gin.Engine
	limiter   *api.RateLimiter

	closeOnce sync.Once
}

// New initializes storage, services and the router in dependency order.
func New(cfg *config.Config, logger *utils.Logger) (*App, error) {
	if logger == nil {
		logger = utils.NopLogger()
	}
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage, cfg.DatabasePath, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	logger.Info("storage opened", map[string]interface{}{"driver": cfg.Storage})

	tokens, err := tokenConfig(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	container := di.NewContainer()
	metrics := utils.NewAPIMetrics(nil)
	hub := api.NewNovelHub(logger, metrics)
	locks := services.NewLockManager()
	novels := services.NewNovelService(store, locks, hub, logger)
	authenticator := api.NewAuthenticator(tokens, logger)

	container.Register(di.ServiceConfig, cfg)
	container.Register(di.ServiceLogger, logger)
	container.Register(di.ServiceStore, store)
	container.Register(di.ServiceLocks, locks)
	container.Register(di.ServiceMetrics, metrics)
	container.Register(di.ServiceHub, hub)
	container.Register(di.ServiceNovels, novels)
	container.Register(di.ServiceAuth, authenticator)

	a := &App{
		config:    cfg,
		logger:    logger,
		container: container,
		limiter:   api.NewRateLimiter(),
	}
	a.router = a.buildRouter()
	logger.Info("services initialized", map[string]interface{}{"services": container.GetNames()})
	return a, nil
}

func (a *App) buildRouter() *gin.Engine {
	c := a.container
	novels := di.MustResolve[*services.NovelService](c, di.ServiceNovels)
	hub := di.MustResolve[*api.NovelHub](c, di.ServiceHub)
	authenticator := di.MustResolve[*api.Authenticator](c, di.ServiceAuth)
	metrics := di.MustResolve[*utils.APIMetrics](c, di.ServiceMetrics)

	handler := api.NewHandler(novels, hub, authenticator, metrics, a.logger, a.config.DebugMode)
	return api.NewRouter(api.RouterConfig{
		Handler:     handler,
		Auth:        authenticator,
		RateLimiter: a.limiter,
		Metrics:     metrics,
		Logger:      a.logger,
		StaticDir:   a.config.StaticDir,
		RateLimit:   a.config.RateLimit,
	})
}

// tokenConfig picks the signing key: the configured one, a fixed key in debug
// mode, or a random one.
func tokenConfig(cfg *config.Config, logger *utils.Logger) (*auth.TokenConfig, error) {
	var secret []byte
	switch {
	case cfg.AuthSecret != "":
		secret = []byte(cfg.AuthSecret)
	case cfg.DebugMode:
		secret = []byte(devAuthSecret)
		logger.Warn("using the fixed development auth key; set AUTH_SECRET_KEY in production", nil)
	default:
		key, err := auth.GenerateSecureKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate auth key: %w", err)
		}
		secret = key
		logger.Warn("AUTH_SECRET_KEY not set; tokens will not survive a restart", nil)
	}
	return &auth.TokenConfig{Secret: secret, Expiration: cfg.TokenTTL}, nil
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Container returns the DI container.
func (a *App) Container() *di.Container { return a.container }

// Run starts the server and shuts it down gracefully when ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Addr(), err)
	}
	return a.Serve(ctx, listener)
}

// Serve serves on the given listener.
func (a *App) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.maintain(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", map[string]interface{}{"addr": listener.Addr().String()})
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// drop websocket connections first or Shutdown waits for the timeout
	di.MustResolve[*api.NovelHub](a.container, di.ServiceHub).Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shut down: %w", err)
	}
	a.logger.Info("server stopped", nil)
	return nil
}

// maintain periodically drops expired rate limit windows.
func (a *App) maintain(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.limiter.Cleanup(); removed > 0 {
				a.logger.Debug("rate limit windows expired", map[string]interface{}{"removed": removed})
			}
		}
	}
}

// Close releases the store and the lock manager.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		di.MustResolve[*services.LockManager](a.container, di.ServiceLocks).Stop()
		err = di.MustResolve[storage.NovelStore](a.container, di.ServiceStore).Close()
	})
	return err
}
