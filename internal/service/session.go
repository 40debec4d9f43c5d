package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
)

// DefaultAutosaveInterval is how often a dirty session is flushed.
const DefaultAutosaveInterval = 600 * time.Second

var (
	ErrChalkboardNotFound = errors.New("chalkboard not found")
	ErrSessionClosed      = errors.New("session closed")
)

// ChalkboardUpdater is the part of Store a Session writes through.
type ChalkboardUpdater interface {
	Chalkboard(id string) (domain.Chalkboard, bool)
	UpdateChalkboard(c domain.Chalkboard) bool
	Viewport() canvas.Size
}

// Rasterizer renders the preview thumbnail stored with a chalkboard.
type Rasterizer interface {
	Thumbnail(d ink.Drawing) ([]byte, error)
}

// SessionState is the dirty-tracking state of an editing session.
type SessionState int

const (
	Clean SessionState = iota
	Dirty
)

func (s SessionState) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "clean"
}

// SessionOptions configures OpenSession. Zero values pick the defaults.
type SessionOptions struct {
	Interval   time.Duration
	Rasterizer Rasterizer
	Clock      func() time.Time
	// Viewport overrides the store's reference viewport.
	Viewport canvas.Size
	// ManualTicks disables the timer; callers drive Tick themselves.
	ManualTicks bool
}

// ─────────────────────────────────────────────────────────────
// Session — autosave controller for one open chalkboard
// ─────────────────────────────────────────────────────────────

// Session holds the working copy of a chalkboard while it is being edited.
// Every mutation marks it Dirty; a recurring timer flushes Dirty sessions,
// and Flush / DeselectCards / FocusCard / Close flush explicitly.
type Session struct {
	mu        sync.Mutex
	store     ChalkboardUpdater
	board     domain.Chalkboard
	drawing   ink.Drawing
	transform canvas.Transform
	viewport  canvas.Size
	state     SessionState
	closed    bool
	// known holds every card id the session has held. Board cards outside
	// it were added by another writer and get adopted.
	known map[string]bool

	sched   *cron.Cron
	raster  Rasterizer
	now     func() time.Time
	onClose func()
	log     *logrus.Entry
}

// OpenSession loads the chalkboard into a new session and starts its timer.
func OpenSession(store ChalkboardUpdater, chalkboardID string, opts SessionOptions) (*Session, error) {
	board, ok := store.Chalkboard(chalkboardID)
	if !ok {
		return nil, fmt.Errorf("open session %s: %w", chalkboardID, ErrChalkboardNotFound)
	}
	viewport := opts.Viewport
	if viewport.Width <= 0 || viewport.Height <= 0 {
		viewport = store.Viewport()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultAutosaveInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Session{
		store:     store,
		board:     board,
		drawing:   board.Drawing(),
		transform: canvas.InitialTransform(board.IsNew(), board.Transform(), viewport),
		viewport:  viewport,
		known:     make(map[string]bool, len(board.Cards)),
		raster:    opts.Rasterizer,
		now:       opts.Clock,
		log:       logrus.WithField("chalkboard_id", chalkboardID),
	}

	s.rememberLocked(board.Cards)

	if !opts.ManualTicks {
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc("@every "+opts.Interval.String(), func() { s.Tick() }); err != nil {
			return nil, fmt.Errorf("schedule autosave: %w", err)
		}
		c.Start()
		s.sched = c
	}
	s.log.WithField("interval", opts.Interval).Debug("session opened")
	return s, nil
}

// ── State ────────────────────────────────────────────────────

func (s *Session) ChalkboardID() string { return s.board.ID }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Drawing() ink.Drawing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawing.Clone()
}

func (s *Session) Cards() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneCards(s.board.Cards)
}

func (s *Session) Transform() canvas.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform
}

// VisibleTiles lists the canvas tiles around the current viewport.
func (s *Session) VisibleTiles() []canvas.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform.VisibleTiles(s.viewport, canvas.DefaultTileSize)
}

// ── Mutations (each marks the session dirty) ─────────────────

// MarkDirty records a change made outside the session's own setters.
func (s *Session) MarkDirty() {
	s.edit(func() bool { return true })
}

func (s *Session) SetDrawing(d ink.Drawing) {
	s.edit(func() bool {
		s.drawing = d.Clone()
		return true
	})
}

func (s *Session) SetCards(cards []domain.Card) {
	s.edit(func() bool {
		s.board.Cards = domain.CloneCards(cards)
		for i := range s.board.Cards {
			s.board.Cards[i].Resize(s.board.Cards[i].Size)
		}
		s.rememberLocked(s.board.Cards)
		return true
	})
}

// UpdateCard replaces the card with the same id.
func (s *Session) UpdateCard(card domain.Card) bool {
	return s.edit(func() bool {
		i := domain.IndexOfCard(s.board.Cards, card.ID)
		if i < 0 {
			return false
		}
		card.Resize(card.Size)
		s.board.Cards[i] = card.Clone()
		return true
	})
}

// AddCard places a new default card under the viewport center and selects it.
func (s *Session) AddCard() domain.Card {
	var card domain.Card
	s.edit(func() bool {
		card = domain.NewCard(canvas.NewCardPosition(s.viewport, s.transform.Offset, s.transform.Scale))
		card.IsEditing = true
		for i := range s.board.Cards {
			s.board.Cards[i].IsEditing = false
		}
		s.board.Cards = append(s.board.Cards, card)
		s.known[card.ID] = true
		return true
	})
	return card.Clone()
}

func (s *Session) RemoveCard(id string) bool {
	return s.edit(func() bool {
		i := domain.IndexOfCard(s.board.Cards, id)
		if i < 0 {
			return false
		}
		s.board.Cards = append(s.board.Cards[:i], s.board.Cards[i+1:]...)
		return true
	})
}

// Pan moves the view by a screen-space translation.
func (s *Session) Pan(translation canvas.Point) {
	s.edit(func() bool {
		s.transform = s.transform.Pan(translation).ClampOffset(s.viewport)
		return true
	})
}

// ZoomAt zooms to scale (clamped) keeping the screen anchor fixed.
func (s *Session) ZoomAt(scale float64, anchor canvas.Point) {
	s.edit(func() bool {
		s.transform = s.transform.ZoomAt(scale, anchor).ClampOffset(s.viewport)
		return true
	})
}

// SetTransform applies a transform reported by a finished gesture.
func (s *Session) SetTransform(t canvas.Transform) {
	s.edit(func() bool {
		t.Scale = canvas.ClampZoom(t.Scale)
		s.transform = t
		return true
	})
}

// ResetView returns to scale 1 centered in the canvas.
func (s *Session) ResetView() {
	s.edit(func() bool {
		s.transform = s.transform.Reset(s.viewport)
		return true
	})
}

// SetViewport records a new viewport size without marking the session dirty.
func (s *Session) SetViewport(size canvas.Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	s.mu.Lock()
	s.viewport = size
	s.mu.Unlock()
}

func (s *Session) edit(fn func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Debug("edit after close ignored")
		return false
	}
	if !fn() {
		return false
	}
	s.state = Dirty
	return true
}

// ── Card selection ───────────────────────────────────────────

// SelectCard toggles edit mode on a card and leaves every other card
// unselected. Locked cards cannot be selected.
func (s *Session) SelectCard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := domain.IndexOfCard(s.board.Cards, id)
	if s.closed || i < 0 || s.board.Cards[i].IsLocked {
		return false
	}
	editing := !s.board.Cards[i].IsEditing
	for j := range s.board.Cards {
		s.board.Cards[j].IsEditing = false
	}
	s.board.Cards[i].IsEditing = editing
	return true
}

// DeselectCards leaves card edit mode and flushes.
func (s *Session) DeselectCards() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	for i := range s.board.Cards {
		s.board.Cards[i].IsEditing = false
	}
	s.flushLocked()
	return nil
}

// FocusCard centers the view on a card, selects it and flushes.
func (s *Session) FocusCard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	i := domain.IndexOfCard(s.board.Cards, id)
	if i < 0 {
		return fmt.Errorf("focus card %s: not on chalkboard", id)
	}
	card := s.board.Cards[i]
	target := card.Position.Add(card.Size.Center())
	s.transform.Offset = canvas.FocusOffset(target, s.viewport, s.transform.Scale)
	for j := range s.board.Cards {
		s.board.Cards[j].IsEditing = j == i
	}
	s.flushLocked()
	return nil
}

// ── Flushing ─────────────────────────────────────────────────

// Tick is the timer body: it flushes a Dirty session and does nothing for a
// Clean or closed one. It reports whether a flush happened.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == Clean {
		return false
	}
	s.flushLocked()
	return true
}

// Flush writes the session to the store regardless of state.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.flushLocked()
	return nil
}

// Sync adopts cards added to the chalkboard outside this session, e.g. by
// another process, and picks up the stored name. The store already holds
// them, so the session stays in its current state.
func (s *Session) Sync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	cur, ok := s.store.Chalkboard(s.board.ID)
	if !ok {
		return false
	}
	s.board.Name = cur.Name
	return s.adoptLocked(cur.Cards)
}

func (s *Session) adoptLocked(cards []domain.Card) bool {
	adopted := false
	for _, c := range cards {
		if s.known[c.ID] {
			continue
		}
		c = c.Clone()
		c.IsEditing = false
		s.board.Cards = append(s.board.Cards, c)
		s.known[c.ID] = true
		adopted = true
	}
	return adopted
}

func (s *Session) rememberLocked(cards []domain.Card) {
	for _, c := range cards {
		s.known[c.ID] = true
	}
}

func (s *Session) flushLocked() {
	// The name and cards added by other writers come from the store.
	if cur, ok := s.store.Chalkboard(s.board.ID); ok {
		s.board.Name = cur.Name
		s.adoptLocked(cur.Cards)
	}
	cb := s.board.Clone()
	cb.SetDrawing(s.drawing)
	cb.CanvasOffset = s.transform.Offset
	cb.ZoomScale = s.transform.Scale
	cb.LastEditDate = s.now()
	cb.PreviewImageData = s.preview()

	if !s.store.UpdateChalkboard(cb) {
		s.log.Warn("flush: chalkboard no longer exists")
	}
	s.board.LastEditDate = cb.LastEditDate
	s.state = Clean
}

// preview renders the thumbnail; nil keeps whatever the store already has.
func (s *Session) preview() []byte {
	if s.raster == nil || s.drawing.IsEmpty() {
		return nil
	}
	data, err := s.raster.Thumbnail(s.drawing)
	if err != nil {
		s.log.WithError(err).Debug("preview render failed")
		return nil
	}
	return data
}

// Close stops the timer, waits for a running tick, and flushes if Dirty.
// No tick runs after Close returns. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched != nil {
		<-sched.Stop().Done()
	}

	s.mu.Lock()
	if s.state == Dirty {
		s.flushLocked()
	}
	onClose := s.onClose
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	s.log.Debug("session closed")
}
