package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"chalkboard/internal/config"
	"chalkboard/internal/domain"
	"chalkboard/internal/secret"
	"chalkboard/internal/service"
	"chalkboard/internal/storage"
)

// backend is the storage stack shared by the desktop app and the standalone
// MCP server: the local SQLite database (settings, and the slots by default)
// plus the slot store the Store persists to.
type backend struct {
	db    *storage.DB
	slots domain.SlotStore
	// ownSlots is set when slots live outside db and must be closed separately.
	ownSlots bool
	// watchable lists files whose changes mean another process wrote the slots.
	watchable []string
}

func openBackend(ctx context.Context, cfg config.Config, secrets secret.SecretStore) (*backend, error) {
	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := &backend{db: db}
	if cfg.StoreDriver == storage.DriverSQLite && cfg.StoreDSN == "" {
		b.slots = db.Slots()
		b.watchable = []string{db.Path(), db.Path() + "-wal"}
	} else {
		dsn, err := resolveDSN(cfg, secrets)
		if err != nil {
			db.Close()
			return nil, err
		}
		slots, err := storage.OpenSlotStore(ctx, cfg.StoreDriver, dsn)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open %s slot store: %w", cfg.StoreDriver, err)
		}
		b.slots = slots
		b.ownSlots = true
	}

	logrus.WithFields(logrus.Fields{
		"driver":  cfg.StoreDriver,
		"db_path": db.Path(),
	}).Info("storage opened")
	return b, nil
}

// resolveDSN returns the configured DSN, falling back to the one saved in
// the secret store for this driver.
func resolveDSN(cfg config.Config, secrets secret.SecretStore) (string, error) {
	if dsn := cfg.SlotDSN(); dsn != "" || cfg.StoreDriver == storage.DriverMemory {
		return dsn, nil
	}
	if secrets != nil {
		v, err := secrets.Get(secret.StoreDSNKey(cfg.StoreDriver))
		if err != nil {
			return "", fmt.Errorf("read %s DSN: %w", cfg.StoreDriver, err)
		}
		if len(v) > 0 {
			return string(v), nil
		}
	}
	return "", fmt.Errorf("no DSN configured for %s slot store (set %s)", cfg.StoreDriver, config.EnvStoreDSN)
}

// newStore builds the Store over the backend slots and loads it.
func (b *backend) newStore(ctx context.Context, cfg config.Config, emitter service.EventEmitter, opts ...service.StoreOption) (*service.Store, error) {
	opts = append([]service.StoreOption{service.WithWriteTimeout(cfg.WriteTimeout)}, opts...)
	store := service.NewStore(b.slots, emitter, opts...)
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return store, nil
}

func (b *backend) Close() error {
	var errs []error
	if b.ownSlots {
		errs = append(errs, b.slots.Close())
	}
	errs = append(errs, b.db.Close())
	return errors.Join(errs...)
}
