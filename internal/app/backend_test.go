package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalkboard/internal/config"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
	"chalkboard/internal/secret"
	"chalkboard/internal/service"
)

func testConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	env[config.EnvDataDir] = t.TempDir()
	return config.FromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
}

func TestOpenBackend_SQLiteSharesDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, map[string]string{})

	b, err := openBackend(ctx, cfg, nil)
	require.NoError(t, err)
	assert.False(t, b.ownSlots)
	assert.Equal(t, []string{cfg.DBPath(), cfg.DBPath() + "-wal"}, b.watchable)

	store, err := b.newStore(ctx, cfg, noopEmitter{})
	require.NoError(t, err)
	store.CreateChalkboard("kept", ink.Drawing{}, nil)
	require.NoError(t, store.Close(ctx))
	require.NoError(t, b.Close())

	b, err = openBackend(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	store, err = b.newStore(ctx, cfg, noopEmitter{})
	require.NoError(t, err)
	defer store.Close(ctx)

	boards := store.Chalkboards()
	require.Len(t, boards, 1)
	assert.Equal(t, "kept", boards[0].Name)
}

func TestOpenBackend_OtherDriverOwnsSlots(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, map[string]string{config.EnvStoreDriver: "memory"})

	b, err := openBackend(ctx, cfg, nil)
	require.NoError(t, err)
	assert.True(t, b.ownSlots)
	assert.Empty(t, b.watchable)
	assert.NoError(t, b.Close())
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, map[string]string{config.EnvStoreDriver: "cassandra"})
	_, err := openBackend(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestResolveDSN(t *testing.T) {
	secrets := secret.NewMemoryStore()

	cfg := testConfig(t, map[string]string{config.EnvStoreDriver: "postgres"})
	_, err := resolveDSN(cfg, secrets)
	assert.ErrorContains(t, err, config.EnvStoreDSN)

	require.NoError(t, secrets.Set(secret.StoreDSNKey("postgres"), []byte("postgres://from-keychain")))
	dsn, err := resolveDSN(cfg, secrets)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-keychain", dsn)

	cfg = testConfig(t, map[string]string{config.EnvStoreDriver: "postgres", config.EnvStoreDSN: "postgres://from-env"})
	dsn, err = resolveDSN(cfg, secrets)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env", dsn)
}

func TestSessionView_ReportsEditingCard(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, map[string]string{config.EnvStoreDriver: "memory"})
	b, err := openBackend(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	store, err := b.newStore(ctx, cfg, noopEmitter{})
	require.NoError(t, err)
	defer store.Close(ctx)

	card := domain.NewCard(cfg.Viewport.Center())
	cb := store.CreateChalkboard("board", ink.Drawing{}, []domain.Card{card})
	s, err := service.OpenSession(store, cb.ID, service.SessionOptions{ManualTicks: true, Interval: time.Minute})
	require.NoError(t, err)
	defer s.Close()

	require.True(t, s.SelectCard(card.ID))
	v := sessionView(s, cb.Name)
	assert.Equal(t, cb.ID, v.ChalkboardID)
	assert.Equal(t, card.ID, v.EditingCardID)
	assert.Equal(t, "clean", v.State)
	assert.NotEmpty(t, v.VisibleTiles)

	row := chalkboardView(cb, true)
	assert.Equal(t, 1, row.CardCount)
	assert.True(t, row.IsOpen)
	assert.False(t, row.HasPreview)
}
