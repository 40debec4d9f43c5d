package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalkboard/internal/canvas"
	"chalkboard/internal/config"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
	"chalkboard/internal/service"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig(t, map[string]string{config.EnvStoreDriver: "memory"})
	b, err := openBackend(ctx, cfg, nil)
	require.NoError(t, err)
	store, err := b.newStore(ctx, cfg, noopEmitter{})
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close(ctx)
		b.Close()
	})
	return &App{ctx: ctx, cfg: cfg, backend: b, store: store, sessions: &service.SessionRegistry{}}
}

func openAppSession(t *testing.T, a *App, id string) *service.Session {
	t.Helper()
	s, err := a.sessions.Open(a.store, id, service.SessionOptions{ManualTicks: true})
	require.NoError(t, err)
	t.Cleanup(func() { a.sessions.CloseAll(context.Background()) })
	return s
}

func cardIDs(cards []domain.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func TestAddCardToChalkboard_OpenSession(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	cb := a.store.CreateChalkboard("open", ink.Drawing{}, nil)
	src := a.store.CreateUnassignedCard()
	s := openAppSession(t, a, cb.ID)
	s.Pan(canvas.Point{X: 40, Y: -25})
	tr := s.Transform()

	moved, err := a.AddCardToChalkboard(src.ID, cb.ID)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, moved.ID)
	assert.Equal(t, canvas.NewCardPosition(a.store.Viewport(), tr.Offset, tr.Scale), moved.Position)
	assert.Equal(t, []string{moved.ID}, cardIDs(s.Cards()))
	assert.Equal(t, service.Clean, s.State())

	_, inPool := a.store.UnassignedCard(src.ID)
	assert.False(t, inPool)

	require.NoError(t, a.store.WaitIdle(ctx))
	data, err := a.backend.slots.Get(ctx, domain.SlotChalkboards)
	require.NoError(t, err)
	var boards []domain.Chalkboard
	require.NoError(t, json.Unmarshal(data, &boards))
	require.Len(t, boards, 1)
	assert.Equal(t, []string{moved.ID}, cardIDs(boards[0].Cards))

	pool, err := a.backend.slots.Get(ctx, domain.SlotUnassignedCards)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(pool))

	_, err = a.AddCardToChalkboard(src.ID, cb.ID)
	assert.Error(t, err, "card already left the pool")
}

func TestCardEdits_OpenSessionWritesOnFlush(t *testing.T) {
	a := newTestApp(t)
	card := domain.NewCard(canvas.Point{X: 10, Y: 10})
	cb := a.store.CreateChalkboard("open", ink.Drawing{}, []domain.Card{card})
	s := openAppSession(t, a, cb.ID)

	cp, err := a.DuplicateCard(cb.ID, card.ID)
	require.NoError(t, err)
	assert.NotEqual(t, card.ID, cp.ID)
	require.NoError(t, a.SetCardLocked(cb.ID, card.ID, true))
	assert.Equal(t, service.Dirty, s.State())

	stored, _ := a.store.Chalkboard(cb.ID)
	assert.Len(t, stored.Cards, 1, "store untouched until the session flushes")

	require.NoError(t, s.Flush())
	stored, _ = a.store.Chalkboard(cb.ID)
	assert.ElementsMatch(t, []string{card.ID, cp.ID}, cardIDs(stored.Cards))
	i := domain.IndexOfCard(stored.Cards, card.ID)
	require.GreaterOrEqual(t, i, 0)
	assert.True(t, stored.Cards[i].IsLocked)

	_, err = a.DuplicateCard(cb.ID, "missing")
	assert.Error(t, err)
	assert.Error(t, a.SetCardLocked(cb.ID, "missing", true))
}

func TestCardEdits_ClosedChalkboardGoToStore(t *testing.T) {
	a := newTestApp(t)
	card := domain.NewCard(canvas.Point{})
	cb := a.store.CreateChalkboard("closed", ink.Drawing{}, []domain.Card{card})

	cp, err := a.DuplicateCard(cb.ID, card.ID)
	require.NoError(t, err)
	require.NoError(t, a.SetCardLocked(cb.ID, cp.ID, true))

	stored, _ := a.store.Chalkboard(cb.ID)
	require.Len(t, stored.Cards, 2)
	assert.True(t, stored.Cards[1].IsLocked)

	src := a.store.CreateUnassignedCard()
	moved, err := a.AddCardToChalkboard(src.ID, cb.ID)
	require.NoError(t, err)
	stored, _ = a.store.Chalkboard(cb.ID)
	assert.Contains(t, cardIDs(stored.Cards), moved.ID)
	assert.Empty(t, a.store.UnassignedCards())
}
