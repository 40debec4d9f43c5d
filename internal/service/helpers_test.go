package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
	"chalkboard/internal/service"
	"chalkboard/internal/storage"
)

var (
	testNow      = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testViewport = canvas.Size{Width: 1280, Height: 800}
)

func fixedClock() time.Time { return testNow }

func newTestStore(t *testing.T, slots domain.SlotStore) (*service.Store, *service.MockEmitter) {
	t.Helper()
	if slots == nil {
		slots = storage.NewMemorySlotStore()
	}
	emitter := &service.MockEmitter{}
	s := service.NewStore(slots, emitter, service.WithViewport(testViewport), service.WithClock(fixedClock))
	require.NoError(t, s.Load(context.Background()))
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, emitter
}

func waitIdle(t *testing.T, s *service.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))
}

func sampleDrawing() ink.Drawing {
	return ink.Drawing{Strokes: []ink.Stroke{{
		Tool:  ink.ToolPen,
		Color: canvas.Black,
		Width: 2,
		Points: []ink.StrokePoint{
			{Location: canvas.Point{X: 10, Y: 10}, Pressure: 1},
			{Location: canvas.Point{X: 90, Y: 60}, Pressure: 0.5},
		},
	}}}
}

// recordingSlots records every Put, optionally slowly or failing.
type recordingSlots struct {
	*storage.MemorySlotStore
	mu      sync.Mutex
	puts    map[string][][]byte
	delay   time.Duration
	failPut bool
	failGet bool
}

func newRecordingSlots() *recordingSlots {
	return &recordingSlots{MemorySlotStore: storage.NewMemorySlotStore(), puts: map[string][][]byte{}}
}

func (r *recordingSlots) Get(ctx context.Context, key string) ([]byte, error) {
	if r.failGet {
		return nil, errors.New("backend offline")
	}
	return r.MemorySlotStore.Get(ctx, key)
}

func (r *recordingSlots) Put(ctx context.Context, key string, value []byte) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.puts[key] = append(r.puts[key], append([]byte(nil), value...))
	r.mu.Unlock()
	if r.failPut {
		return errors.New("disk full")
	}
	return r.MemorySlotStore.Put(ctx, key, value)
}

func (r *recordingSlots) putsFor(key string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.puts[key]...)
}

// countingUpdater counts UpdateChalkboard calls made by a session.
type countingUpdater struct {
	*service.Store
	mu      sync.Mutex
	updates []domain.Chalkboard
}

func (c *countingUpdater) UpdateChalkboard(cb domain.Chalkboard) bool {
	c.mu.Lock()
	c.updates = append(c.updates, cb.Clone())
	c.mu.Unlock()
	return c.Store.UpdateChalkboard(cb)
}

func (c *countingUpdater) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func (c *countingUpdater) last() domain.Chalkboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates[len(c.updates)-1]
}

type fakeRasterizer struct {
	calls int
	err   error
}

func (f *fakeRasterizer) Thumbnail(d ink.Drawing) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("thumb"), nil
}
