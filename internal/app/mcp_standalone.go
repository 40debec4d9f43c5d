package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chalkboard/internal/config"
	mcpserver "chalkboard/internal/mcp"
	"chalkboard/internal/secret"
	"chalkboard/internal/service"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It opens the same storage as the desktop app and runs until interrupted.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	cfg.ApplyLogging()

	b, err := openBackend(ctx, cfg, secret.NewKeychainStore())
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer b.Close()

	viewport := service.NewViewportSettingsService(b.db, cfg.Viewport)
	watcher := service.NewStoreWatcher(service.StoreWatcherOptions{})
	store, err := b.newStore(ctx, cfg, noopEmitter{},
		service.WithViewport(viewport.LoadViewport()),
	)
	if err != nil {
		log.Fatalf("Failed to load chalkboards: %v", err)
	}
	// Slots are written whole, so stay current with the desktop app's writes.
	if len(b.watchable) > 0 {
		if err := watcher.Start(ctx, store, b.watchable...); err != nil {
			log.Printf("Failed to watch database: %v", err)
		}
		defer watcher.Stop()
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		store.Close(sctx)
	}()

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Store:        store,
		WriteTimeout: cfg.WriteTimeout,
	})

	log.Println("[MCP] Starting standalone stdio server...")
	errCh := make(chan error, 1)
	go func() { errCh <- mcpSrv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("MCP server error: %v", err)
		}
	case <-ctx.Done():
	}
}
