package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
)

const (
	defaultChalkboardName = "Untitled Chalkboard"
	defaultWriteTimeout   = 10 * time.Second
)

// ─────────────────────────────────────────────────────────────
// Store — chalkboards and the unassigned card pool
// ─────────────────────────────────────────────────────────────

// Store holds every chalkboard and unassigned card in memory. Each mutation
// replaces the affected collection's slot in full; the two slots are written
// independently and never transactionally.
//
// Lookup misses are no-ops reported through the bool results. Persistence
// errors are logged by the slot writers and never surface here.
type Store struct {
	mu          sync.RWMutex
	slots       domain.SlotStore
	emitter     EventEmitter
	ctx         context.Context
	viewport    canvas.Size
	chalkboards []domain.Chalkboard
	unassigned  []domain.Card

	boardsW *slotWriter
	cardsW  *slotWriter

	onReload func()

	now func() time.Time
	log *logrus.Entry
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	viewport     canvas.Size
	now          func() time.Time
	writeTimeout time.Duration
	onWrite      func(key string, err error)
	onReload     func()
}

// WithViewport sets the viewport used to center and place content when no
// view session supplies one.
func WithViewport(size canvas.Size) StoreOption {
	return func(c *storeConfig) { c.viewport = size }
}

func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) { c.now = now }
}

func WithWriteTimeout(d time.Duration) StoreOption {
	return func(c *storeConfig) { c.writeTimeout = d }
}

// WithWriteHook registers a callback run after every slot write attempt.
func WithWriteHook(fn func(key string, err error)) StoreOption {
	return func(c *storeConfig) { c.onWrite = fn }
}

// WithReloadHook registers a callback run after Reload has replaced the
// in-memory collections and before EventReloaded is emitted.
func WithReloadHook(fn func()) StoreOption {
	return func(c *storeConfig) { c.onReload = fn }
}

// NewStore creates a Store over slots. Call Load before use.
func NewStore(slots domain.SlotStore, emitter EventEmitter, opts ...StoreOption) *Store {
	cfg := storeConfig{
		viewport:     canvas.Size{Width: 1280, Height: 800},
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &Store{
		slots:       slots,
		emitter:     emitter,
		ctx:         context.Background(),
		viewport:    cfg.viewport,
		chalkboards: []domain.Chalkboard{},
		unassigned:  []domain.Card{},
		boardsW:     newSlotWriter(domain.SlotChalkboards, slots, cfg.writeTimeout, cfg.onWrite),
		cardsW:      newSlotWriter(domain.SlotUnassignedCards, slots, cfg.writeTimeout, cfg.onWrite),
		onReload:    cfg.onReload,
		now:         cfg.now,
		log:         logrus.WithField("component", "store"),
	}
}

// Load reads both slots. A missing slot is an empty collection; a slot that
// cannot be decoded is logged and treated as empty. ctx is kept for events.
func (s *Store) Load(ctx context.Context) error {
	var boards []domain.Chalkboard
	if err := s.readSlot(ctx, s.boardsW, &boards); err != nil {
		return err
	}
	var cards []domain.Card
	if err := s.readSlot(ctx, s.cardsW, &cards); err != nil {
		return err
	}
	if boards == nil {
		boards = []domain.Chalkboard{}
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	for i := range boards {
		boards[i].Normalize()
	}

	s.mu.Lock()
	s.ctx = ctx
	s.chalkboards = boards
	s.unassigned = cards
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"chalkboards": len(boards),
		"unassigned":  len(cards),
	}).Info("store loaded")
	return nil
}

// Reload waits for pending writes, re-reads both slots and notifies listeners.
// Used when another process has written the backing store.
func (s *Store) Reload(ctx context.Context) error {
	if err := s.WaitIdle(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	s.mu.RLock()
	eventCtx := s.ctx
	s.mu.RUnlock()
	if err := s.Load(eventCtx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if s.onReload != nil {
		s.onReload()
	}
	s.emitter.Emit(eventCtx, EventReloaded, nil)
	return nil
}

// ReloadIfChanged reloads only when a slot no longer holds the bytes this
// Store last read or wrote, and reports whether it did.
func (s *Store) ReloadIfChanged(ctx context.Context) (bool, error) {
	if err := s.WaitIdle(ctx); err != nil {
		return false, fmt.Errorf("reload: %w", err)
	}
	changed := false
	for _, w := range []*slotWriter{s.boardsW, s.cardsW} {
		data, err := s.getSlot(ctx, w.key)
		if err != nil {
			return false, fmt.Errorf("reload: %w", err)
		}
		if !w.holds(data) {
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	return true, s.Reload(ctx)
}

func (s *Store) readSlot(ctx context.Context, w *slotWriter, into any) error {
	data, err := s.getSlot(ctx, w.key)
	if err != nil {
		return fmt.Errorf("load %s: %w", w.key, err)
	}
	w.noteDigest(data)
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		s.log.WithError(err).WithField("slot", w.key).Error("undecodable slot, starting empty")
	}
	return nil
}

// getSlot reads a slot; a missing slot reads as nil.
func (s *Store) getSlot(ctx context.Context, key string) ([]byte, error) {
	data, err := s.slots.Get(ctx, key)
	if errors.Is(err, domain.ErrSlotNotFound) {
		return nil, nil
	}
	return data, err
}

// WaitIdle blocks until both slots have caught up with memory.
func (s *Store) WaitIdle(ctx context.Context) error {
	if err := s.boardsW.waitIdle(ctx); err != nil {
		return err
	}
	return s.cardsW.waitIdle(ctx)
}

// Close flushes pending writes and stops the writers. The slot store itself
// belongs to the caller.
func (s *Store) Close(ctx context.Context) error {
	return errors.Join(s.boardsW.close(ctx), s.cardsW.close(ctx))
}

func (s *Store) Viewport() canvas.Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// SetViewport updates the reference viewport, e.g. after a window resize.
func (s *Store) SetViewport(size canvas.Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	s.mu.Lock()
	s.viewport = size
	s.mu.Unlock()
}

// ── Reads ────────────────────────────────────────────────────

func (s *Store) Chalkboards() []domain.Chalkboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBoards(s.chalkboards)
}

func (s *Store) Chalkboard(id string) (domain.Chalkboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.boardIndex(id)
	if i < 0 {
		return domain.Chalkboard{}, false
	}
	return s.chalkboards[i].Clone(), true
}

func (s *Store) UnassignedCards() []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneCards(s.unassigned)
}

func (s *Store) UnassignedCard(id string) (domain.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := domain.IndexOfCard(s.unassigned, id)
	if i < 0 {
		return domain.Card{}, false
	}
	return s.unassigned[i].Clone(), true
}

// ── Chalkboards ──────────────────────────────────────────────

// CreateChalkboard appends a new board. A board with no ink and no cards
// starts centered in the canvas for the reference viewport.
func (s *Store) CreateChalkboard(name string, drawing ink.Drawing, cards []domain.Card) domain.Chalkboard {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultChalkboardName
	}
	s.mu.Lock()
	cb := domain.NewChalkboard(name, drawing, cards, s.now())
	if cb.IsNew() {
		cb.CanvasOffset = canvas.CenterOffset(s.viewport)
	}
	s.chalkboards = append(s.chalkboards, cb)
	n := s.persistBoardsLocked()
	s.mu.Unlock()

	s.log.WithField("chalkboard_id", cb.ID).Debug("chalkboard created")
	s.emit(EventChalkboardsChanged, n)
	return cb.Clone()
}

// UpdateChalkboard replaces the board with c's id. A nil preview keeps the
// stored one.
func (s *Store) UpdateChalkboard(c domain.Chalkboard) bool {
	s.mu.Lock()
	i := s.boardIndex(c.ID)
	if i < 0 {
		s.mu.Unlock()
		s.log.WithField("chalkboard_id", c.ID).Debug("update chalkboard: not found")
		return false
	}
	next := c.Clone()
	if next.PreviewImageData == nil {
		next.PreviewImageData = s.chalkboards[i].PreviewImageData
	}
	next.Normalize()
	s.chalkboards[i] = next
	n := s.persistBoardsLocked()
	s.mu.Unlock()

	s.emit(EventChalkboardsChanged, n)
	return true
}

func (s *Store) DeleteChalkboard(id string) bool {
	return s.mutateBoards(id, func(i int) bool {
		s.chalkboards = append(s.chalkboards[:i], s.chalkboards[i+1:]...)
		return true
	})
}

func (s *Store) RenameChalkboard(id, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return s.mutateBoards(id, func(i int) bool {
		s.chalkboards[i].Name = name
		s.chalkboards[i].LastEditDate = s.now()
		return true
	})
}

// DuplicateCardOnChalkboard adds a blank-ink copy of a board card next to it.
func (s *Store) DuplicateCardOnChalkboard(boardID, cardID string) (domain.Card, bool) {
	var out domain.Card
	found := s.mutateBoards(boardID, func(i int) bool {
		card, _, ok := s.chalkboards[i].Card(cardID)
		if !ok {
			return false
		}
		out = card.Copy()
		s.chalkboards[i].Cards = append(s.chalkboards[i].Cards, out)
		s.chalkboards[i].LastEditDate = s.now()
		return true
	})
	return out.Clone(), found
}

func (s *Store) SetCardLocked(boardID, cardID string, locked bool) bool {
	return s.mutateBoards(boardID, func(i int) bool {
		j := domain.IndexOfCard(s.chalkboards[i].Cards, cardID)
		if j < 0 {
			return false
		}
		s.chalkboards[i].Cards[j].IsLocked = locked
		return true
	})
}

// mutateBoards runs fn on the board's index under the write lock and
// persists when fn reports a change.
func (s *Store) mutateBoards(id string, fn func(i int) bool) bool {
	s.mu.Lock()
	i := s.boardIndex(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.WithField("chalkboard_id", id).Debug("chalkboard not found")
		return false
	}
	if !fn(i) {
		s.mu.Unlock()
		return false
	}
	n := s.persistBoardsLocked()
	s.mu.Unlock()

	s.emit(EventChalkboardsChanged, n)
	return true
}

// ── Unassigned cards ─────────────────────────────────────────

// CreateUnassignedCard adds a default card to the pool and returns it.
func (s *Store) CreateUnassignedCard() domain.Card {
	card := domain.NewCard(canvas.Point{})
	card.BackgroundColor = domain.AccentCardColor

	s.mu.Lock()
	s.unassigned = append(s.unassigned, card)
	n := s.persistCardsLocked()
	s.mu.Unlock()

	s.emit(EventUnassignedChanged, n)
	return card.Clone()
}

func (s *Store) UpdateUnassignedCard(card domain.Card) bool {
	card.Resize(card.Size)
	return s.mutateCards(card.ID, func(i int) {
		s.unassigned[i] = card.Clone()
	})
}

func (s *Store) DeleteUnassignedCard(id string) bool {
	return s.mutateCards(id, func(i int) {
		s.unassigned = append(s.unassigned[:i], s.unassigned[i+1:]...)
	})
}

func (s *Store) mutateCards(id string, fn func(i int)) bool {
	s.mu.Lock()
	i := domain.IndexOfCard(s.unassigned, id)
	if i < 0 {
		s.mu.Unlock()
		s.log.WithField("card_id", id).Debug("unassigned card not found")
		return false
	}
	fn(i)
	n := s.persistCardsLocked()
	s.mu.Unlock()

	s.emit(EventUnassignedChanged, n)
	return true
}

// AddCardToChalkboard moves card onto the board. The board receives a copy
// under a new id, placed under the viewport center of the given transform;
// the original leaves the pool. A non-positive scale means "use the board's
// stored transform". Both collections are persisted.
func (s *Store) AddCardToChalkboard(card domain.Card, chalkboardID string, offset canvas.Point, scale float64) (domain.Card, bool) {
	s.mu.Lock()
	i := s.boardIndex(chalkboardID)
	if i < 0 {
		s.mu.Unlock()
		s.log.WithField("chalkboard_id", chalkboardID).Debug("add card: chalkboard not found")
		return domain.Card{}, false
	}
	board := &s.chalkboards[i]
	if scale <= 0 {
		offset, scale = board.CanvasOffset, board.NormalizedScale()
	}
	moved := card.Duplicate(canvas.NewCardPosition(s.viewport, offset, scale))
	board.Cards = append(board.Cards, moved)
	board.LastEditDate = s.now()

	if j := domain.IndexOfCard(s.unassigned, card.ID); j >= 0 {
		s.unassigned = append(s.unassigned[:j], s.unassigned[j+1:]...)
	}
	nb := s.persistBoardsLocked()
	nc := s.persistCardsLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"chalkboard_id": chalkboardID,
		"source_id":     card.ID,
		"card_id":       moved.ID,
	}).Debug("card moved to chalkboard")
	s.emit(EventChalkboardsChanged, nb)
	s.emit(EventUnassignedChanged, nc)
	return moved.Clone(), true
}

// ── Persistence ──────────────────────────────────────────────

func (s *Store) persistBoardsLocked() int {
	s.boardsW.submit(cloneBoards(s.chalkboards))
	return len(s.chalkboards)
}

func (s *Store) persistCardsLocked() int {
	s.cardsW.submit(domain.CloneCards(s.unassigned))
	return len(s.unassigned)
}

func (s *Store) emit(event string, data any) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	s.emitter.Emit(ctx, event, data)
}

func (s *Store) boardIndex(id string) int {
	for i := range s.chalkboards {
		if s.chalkboards[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneBoards(boards []domain.Chalkboard) []domain.Chalkboard {
	out := make([]domain.Chalkboard, len(boards))
	for i, b := range boards {
		out[i] = b.Clone()
	}
	return out
}
