package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
	"chalkboard/internal/service"
	"chalkboard/internal/storage"
)

func openTestSession(t *testing.T, board domain.Chalkboard, store *countingUpdater, raster service.Rasterizer) *service.Session {
	t.Helper()
	sess, err := service.OpenSession(store, board.ID, service.SessionOptions{
		Rasterizer:  raster,
		Clock:       func() time.Time { return testNow.Add(time.Hour) },
		ManualTicks: true,
	})
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func newCountingStore(t *testing.T) *countingUpdater {
	s, _ := newTestStore(t, nil)
	return &countingUpdater{Store: s}
}

// ─────────────────────────────────────────────────────────────
// Dirty tracking
// ─────────────────────────────────────────────────────────────

func TestSession_TickIsIdempotentWhenClean(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)
	sess := openTestSession(t, board, store, nil)

	assert.Equal(t, service.Clean, sess.State())
	assert.False(t, sess.Tick())
	assert.Equal(t, 0, store.count())

	sess.MarkDirty()
	assert.Equal(t, service.Dirty, sess.State())
	assert.True(t, sess.Tick())
	assert.False(t, sess.Tick())
	assert.False(t, sess.Tick())
	assert.Equal(t, 1, store.count())
	assert.Equal(t, service.Clean, sess.State())
}

func TestSession_MutationsMarkDirty(t *testing.T) {
	store := newCountingStore(t)
	card := domain.NewCard(canvas.Point{X: 10, Y: 10})
	board := store.CreateChalkboard("b", ink.Drawing{}, []domain.Card{card})
	sess := openTestSession(t, board, store, nil)

	edits := []func(){
		func() { sess.SetDrawing(sampleDrawing()) },
		func() { sess.SetCards(sess.Cards()) },
		func() {
			card.Position.X = 99
			sess.UpdateCard(card)
		},
		func() { sess.AddCard() },
		func() { sess.Pan(canvas.Point{X: 5, Y: 5}) },
		func() { sess.ZoomAt(2, canvas.Point{X: 100, Y: 100}) },
		func() { sess.SetTransform(canvas.Transform{Offset: canvas.Point{X: 1, Y: 1}, Scale: 9}) },
		func() { sess.ResetView() },
	}
	for i, edit := range edits {
		edit()
		assert.Equal(t, service.Dirty, sess.State(), "edit %d", i)
		require.True(t, sess.Tick())
	}
	assert.Equal(t, len(edits), store.count())
}

func TestSession_MissesDoNotDirty(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)
	sess := openTestSession(t, board, store, nil)

	assert.False(t, sess.UpdateCard(domain.Card{ID: "nope"}))
	assert.False(t, sess.RemoveCard("nope"))
	assert.Equal(t, service.Clean, sess.State())
}

// ─────────────────────────────────────────────────────────────
// Flush content
// ─────────────────────────────────────────────────────────────

func TestSession_FlushWritesSessionState(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)
	raster := &fakeRasterizer{}
	sess := openTestSession(t, board, store, raster)

	sess.SetDrawing(sampleDrawing())
	sess.SetTransform(canvas.Transform{Offset: canvas.Point{X: 400, Y: 300}, Scale: 2.5})
	require.NoError(t, sess.Flush())

	saved, ok := store.Chalkboard(board.ID)
	require.True(t, ok)
	assert.Equal(t, sampleDrawing(), saved.Drawing())
	assert.Equal(t, canvas.Point{X: 400, Y: 300}, saved.CanvasOffset)
	assert.Equal(t, 2.5, saved.ZoomScale)
	assert.Equal(t, testNow.Add(time.Hour), saved.LastEditDate)
	assert.Equal(t, []byte("thumb"), saved.PreviewImageData)
	assert.Equal(t, 1, raster.calls)
}

func TestSession_FlushKeepsPreviewWhenRenderFails(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", sampleDrawing(), nil)
	board.PreviewImageData = []byte("old")
	require.True(t, store.Store.UpdateChalkboard(board))

	sess := openTestSession(t, board, store, &fakeRasterizer{err: errors.New("boom")})
	require.NoError(t, sess.Flush())

	assert.Nil(t, store.last().PreviewImageData)
	saved, _ := store.Chalkboard(board.ID)
	assert.Equal(t, []byte("old"), saved.PreviewImageData)
}

func TestSession_FlushOfDeletedBoardIsHarmless(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)
	sess := openTestSession(t, board, store, nil)

	require.True(t, store.DeleteChalkboard(board.ID))
	sess.MarkDirty()
	require.NoError(t, sess.Flush())
	assert.Equal(t, service.Clean, sess.State())
	assert.Empty(t, store.Chalkboards())
}

// ─────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────

func TestSession_OpenMissingBoard(t *testing.T) {
	store := newCountingStore(t)
	_, err := service.OpenSession(store, "missing", service.SessionOptions{ManualTicks: true})
	require.ErrorIs(t, err, service.ErrChalkboardNotFound)
}

func TestSession_InitialTransform(t *testing.T) {
	store := newCountingStore(t)

	fresh := store.CreateChalkboard("new", ink.Drawing{}, nil)
	sess := openTestSession(t, fresh, store, nil)
	assert.Equal(t, canvas.Transform{Offset: canvas.CenterOffset(testViewport), Scale: 1}, sess.Transform())

	used := store.CreateChalkboard("used", sampleDrawing(), nil)
	used.CanvasOffset = canvas.Point{X: 1234, Y: 5678}
	used.ZoomScale = 3
	require.True(t, store.Store.UpdateChalkboard(used))
	sess = openTestSession(t, used, store, nil)
	assert.Equal(t, canvas.Transform{Offset: canvas.Point{X: 1234, Y: 5678}, Scale: 3}, sess.Transform())
	assert.Equal(t, service.Clean, sess.State())
}

func TestSession_CloseFlushesOnlyWhenDirty(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)

	clean := openTestSession(t, board, store, nil)
	clean.Close()
	assert.Equal(t, 0, store.count())

	dirty := openTestSession(t, board, store, nil)
	dirty.SetDrawing(sampleDrawing())
	dirty.Close()
	dirty.Close()
	assert.Equal(t, 1, store.count())

	// closed sessions ignore edits and ticks
	dirty.SetDrawing(ink.Drawing{})
	assert.False(t, dirty.Tick())
	assert.ErrorIs(t, dirty.Flush(), service.ErrSessionClosed)
	assert.ErrorIs(t, dirty.DeselectCards(), service.ErrSessionClosed)
	assert.Equal(t, 1, store.count())
}

func TestSession_TimerFlushesDirtySession(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)
	sess, err := service.OpenSession(store, board.ID, service.SessionOptions{Interval: time.Second})
	require.NoError(t, err)
	defer sess.Close()

	sess.SetDrawing(sampleDrawing())
	require.Eventually(t, func() bool { return store.count() == 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, service.Clean, sess.State())
}

func TestSession_NoTickAfterClose(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)
	sess, err := service.OpenSession(store, board.ID, service.SessionOptions{Interval: time.Second})
	require.NoError(t, err)

	sess.Close()
	sess.MarkDirty()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, 0, store.count())
}

// ─────────────────────────────────────────────────────────────
// Cards
// ─────────────────────────────────────────────────────────────

func TestSession_SelectAndDeselect(t *testing.T) {
	store := newCountingStore(t)
	a := domain.NewCard(canvas.Point{})
	b := domain.NewCard(canvas.Point{X: 400})
	b.IsLocked = true
	board := store.CreateChalkboard("b", ink.Drawing{}, []domain.Card{a, b})
	sess := openTestSession(t, board, store, nil)

	require.True(t, sess.SelectCard(a.ID))
	assert.True(t, sess.Cards()[0].IsEditing)
	assert.False(t, sess.SelectCard(b.ID), "locked cards are not selectable")
	assert.Equal(t, service.Clean, sess.State(), "selection alone is not an edit")

	require.NoError(t, sess.DeselectCards())
	for _, c := range sess.Cards() {
		assert.False(t, c.IsEditing)
	}
	assert.Equal(t, 1, store.count(), "deselect forces a flush")
}

func TestSession_AddCardAtViewportCenter(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("b", ink.Drawing{}, nil)
	sess := openTestSession(t, board, store, nil)

	card := sess.AddCard()
	tr := sess.Transform()
	assert.Equal(t, canvas.NewCardPosition(testViewport, tr.Offset, tr.Scale), card.Position)
	assert.True(t, card.IsEditing)
	require.Len(t, sess.Cards(), 1)

	require.True(t, sess.RemoveCard(card.ID))
	assert.Empty(t, sess.Cards())
}

func TestSession_UpdateCardKeepsMinimumSize(t *testing.T) {
	store := newCountingStore(t)
	card := domain.NewCard(canvas.Point{})
	board := store.CreateChalkboard("b", ink.Drawing{}, []domain.Card{card})
	sess := openTestSession(t, board, store, nil)

	card.Size = canvas.Size{Width: 10, Height: 10}
	require.True(t, sess.UpdateCard(card))
	assert.Equal(t, canvas.Size{Width: 100, Height: 100}, sess.Cards()[0].Size)
}

func TestSession_FocusCard(t *testing.T) {
	store := newCountingStore(t)
	card := domain.NewCard(canvas.Point{X: 1000, Y: 2000})
	board := store.CreateChalkboard("b", ink.Drawing{}, []domain.Card{card})
	sess := openTestSession(t, board, store, nil)

	require.NoError(t, sess.FocusCard(card.ID))
	// card center (1150, 2100) lands under the viewport center
	assert.Equal(t, canvas.Point{X: 510, Y: 1700}, sess.Transform().Offset)
	assert.True(t, sess.Cards()[0].IsEditing)
	assert.Equal(t, 1, store.count())

	require.Error(t, sess.FocusCard("nope"))
}

func TestSession_FlushKeepsNameChangedInStore(t *testing.T) {
	store := newCountingStore(t)
	board := store.CreateChalkboard("before", ink.Drawing{}, nil)
	sess := openTestSession(t, board, store, nil)

	require.True(t, store.RenameChalkboard(board.ID, "after"))
	sess.SetDrawing(sampleDrawing())
	require.NoError(t, sess.Flush())

	got, ok := store.Chalkboard(board.ID)
	require.True(t, ok)
	assert.Equal(t, "after", got.Name)
	assert.Len(t, got.Drawing().Strokes, 1)
}

// ─────────────────────────────────────────────────────────────
// Cards written by other stores
// ─────────────────────────────────────────────────────────────

func cardIDs(cards []domain.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func TestSession_KeepsCardMovedInByAnotherStore(t *testing.T) {
	slots := storage.NewMemorySlotStore()
	gui, _ := newTestStore(t, slots)
	board := gui.CreateChalkboard("shared", ink.Drawing{}, nil)
	waitIdle(t, gui)

	sess, err := service.OpenSession(gui, board.ID, service.SessionOptions{ManualTicks: true})
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	other, _ := newTestStore(t, slots)
	moved, ok := other.AddCardToChalkboard(other.CreateUnassignedCard(), board.ID, canvas.Point{}, 0)
	require.True(t, ok)
	waitIdle(t, other)

	require.NoError(t, gui.Reload(context.Background()))
	sess.SetDrawing(sampleDrawing())
	sess.Close()
	waitIdle(t, gui)

	got, ok := gui.Chalkboard(board.ID)
	require.True(t, ok)
	assert.Equal(t, []string{moved.ID}, cardIDs(got.Cards))
	assert.Len(t, got.Drawing().Strokes, 1)
	assert.Empty(t, gui.UnassignedCards())

	reopened, _ := newTestStore(t, slots)
	got, ok = reopened.Chalkboard(board.ID)
	require.True(t, ok)
	assert.Equal(t, []string{moved.ID}, cardIDs(got.Cards))
}

func TestSession_SyncAdoptsOnlyUnknownCards(t *testing.T) {
	store := newCountingStore(t)
	kept := domain.NewCard(canvas.Point{})
	removed := domain.NewCard(canvas.Point{X: 300})
	board := store.CreateChalkboard("b", ink.Drawing{}, []domain.Card{kept, removed})
	sess := openTestSession(t, board, store, nil)

	extra, ok := store.DuplicateCardOnChalkboard(board.ID, kept.ID)
	require.True(t, ok)
	assert.True(t, sess.Sync())
	assert.Equal(t, service.Clean, sess.State())
	assert.False(t, sess.Sync(), "already adopted")

	// A card the session removed stays removed even though the store has it.
	require.True(t, sess.RemoveCard(removed.ID))
	require.NoError(t, sess.Flush())

	got, ok := store.Chalkboard(board.ID)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{kept.ID, extra.ID}, cardIDs(got.Cards))
	assert.ElementsMatch(t, []string{kept.ID, extra.ID}, cardIDs(sess.Cards()))
}
