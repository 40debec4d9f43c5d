package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"chalkboard/internal/config"
	"chalkboard/internal/preview"
	"chalkboard/internal/secret"
	"chalkboard/internal/service"
)

const shutdownTimeout = 15 * time.Second

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg config.Config

	backend  *backend
	store    *service.Store
	sessions *service.SessionRegistry
	viewport *service.ViewportSettingsService
	renderer *preview.Renderer
	watcher  *service.StoreWatcher
	secrets  secret.SecretStore
}

// New creates a new App.
func New() *App {
	return &App{
		sessions: &service.SessionRegistry{},
		secrets:  secret.NewKeychainStore(),
	}
}

// wailsEmitter forwards service events to the frontend.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.cfg = config.Load()
	a.cfg.ApplyLogging()

	b, err := openBackend(ctx, a.cfg, a.secrets)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open storage: %v", err)
		return
	}
	a.backend = b
	a.viewport = service.NewViewportSettingsService(b.db, a.cfg.Viewport)
	a.watcher = service.NewStoreWatcher(service.StoreWatcherOptions{})

	store, err := b.newStore(ctx, a.cfg, wailsEmitter{},
		service.WithViewport(a.viewport.LoadViewport()),
		service.WithWriteHook(a.onSlotWrite),
		service.WithReloadHook(a.sessions.SyncAll),
	)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load chalkboards: %v", err)
		return
	}
	a.store = store
	a.renderer = preview.NewRenderer(a.cfg.PreviewScale, a.cfg.PreviewQuality)

	// Pick up changes made by the standalone MCP server.
	if len(b.watchable) > 0 {
		if err := a.watcher.Start(ctx, store, b.watchable...); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to watch database: %v", err)
		}
	}
}

func (a *App) onSlotWrite(key string, err error) {
	if err == nil {
		return
	}
	wailsRuntime.EventsEmit(a.ctx, "store:write-failed", map[string]string{
		"slot":  key,
		"error": err.Error(),
	})
}

// Shutdown is called when the app is closing. Open chalkboards get their
// final flush before the store drains and storage closes.
func (a *App) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.sessions.CloseAll(ctx)
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			logrus.WithError(err).Error("store did not drain before shutdown")
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			logrus.WithError(err).Error("close storage")
		}
	}
}

// SaveStoreDSN keeps the DSN for a remote slot store in the keychain so it
// does not have to live in .env. It is used from the next launch on.
func (a *App) SaveStoreDSN(driver, dsn string) error {
	if dsn == "" {
		return a.secrets.Delete(secret.StoreDSNKey(driver))
	}
	return a.secrets.Set(secret.StoreDSNKey(driver), []byte(dsn))
}
