package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalkboard/internal/ink"
	"chalkboard/internal/service"
	"chalkboard/internal/storage"
)

func startWatcher(t *testing.T, store *service.Store, opts service.StoreWatcherOptions) (*service.StoreWatcher, string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "chalkboard.db")
	require.NoError(t, os.WriteFile(file, []byte("v0"), 0644))

	w := service.NewStoreWatcher(opts)
	require.NoError(t, w.Start(context.Background(), store, file))
	t.Cleanup(w.Stop)
	return w, file
}

func TestStoreWatcher_ReloadsOnExternalWrite(t *testing.T) {
	slots := storage.NewMemorySlotStore()
	store, emitter := newTestStore(t, slots)
	w, file := startWatcher(t, store, service.StoreWatcherOptions{Debounce: 20 * time.Millisecond})

	// Another process adds a chalkboard through its own Store on the same slots.
	other, _ := newTestStore(t, slots)
	other.CreateChalkboard("from elsewhere", ink.Drawing{}, nil)
	waitIdle(t, other)
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0644))

	require.Eventually(t, func() bool { return w.Reloads() > 0 }, 3*time.Second, 10*time.Millisecond)
	assert.Len(t, store.Chalkboards(), 1)
	assert.GreaterOrEqual(t, emitter.Count(service.EventReloaded), 1)
}

func TestStoreWatcher_IgnoresOwnWrites(t *testing.T) {
	store, emitter := newTestStore(t, nil)
	w, file := startWatcher(t, store, service.StoreWatcherOptions{Debounce: 20 * time.Millisecond})

	store.CreateChalkboard("mine", ink.Drawing{}, nil)
	store.CreateUnassignedCard()
	waitIdle(t, store)
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, w.Reloads())
	assert.Zero(t, emitter.Count(service.EventReloaded))
}

func TestStoreWatcher_ReloadsExternalWriteRightAfterOwnWrite(t *testing.T) {
	slots := storage.NewMemorySlotStore()
	store, _ := newTestStore(t, slots)
	w, file := startWatcher(t, store, service.StoreWatcherOptions{Debounce: 20 * time.Millisecond})

	store.CreateChalkboard("mine", ink.Drawing{}, nil)
	waitIdle(t, store)
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0644))

	other, _ := newTestStore(t, slots)
	other.CreateChalkboard("theirs", ink.Drawing{}, nil)
	waitIdle(t, other)
	require.NoError(t, os.WriteFile(file, []byte("v2"), 0644))

	require.Eventually(t, func() bool { return w.Reloads() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Len(t, store.Chalkboards(), 2)
}

func TestStoreWatcher_IgnoresOtherFiles(t *testing.T) {
	store, _ := newTestStore(t, nil)
	w, file := startWatcher(t, store, service.StoreWatcherOptions{Debounce: 20 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(file), "readme.txt"), []byte("x"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, w.Reloads())
}

func TestStoreWatcher_StopWithoutStart(t *testing.T) {
	w := service.NewStoreWatcher(service.StoreWatcherOptions{})
	assert.NotPanics(t, w.Stop)
}
