package app

// ─────────────────────────────────────────────────────────────
// Chalkboard + Card Handlers — delegates to Store, or to the open
// session when the chalkboard is being edited
// ─────────────────────────────────────────────────────────────

import (
	"fmt"
	"strings"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
	"chalkboard/internal/preview"
)

// ── Chalkboards ────────────────────────────────────────────

func (a *App) ListChalkboards() []ChalkboardView {
	boards := a.store.Chalkboards()
	views := make([]ChalkboardView, len(boards))
	for i, cb := range boards {
		_, open := a.sessions.Get(cb.ID)
		views[i] = chalkboardView(cb, open)
	}
	return views
}

func (a *App) CreateChalkboard(name string) ChalkboardView {
	return chalkboardView(a.store.CreateChalkboard(name, ink.Drawing{}, nil), false)
}

func (a *App) RenameChalkboard(id, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("chalkboard name cannot be empty")
	}
	if !a.store.RenameChalkboard(id, name) {
		return fmt.Errorf("chalkboard %s not found", id)
	}
	return nil
}

// DeleteChalkboard closes the chalkboard's session first so no later
// autosave can write the board back.
func (a *App) DeleteChalkboard(id string) {
	a.sessions.Close(id)
	a.store.DeleteChalkboard(id)
}

// GetChalkboardPreview returns the stored thumbnail as a data URL sized for
// the chalkboard list, or a placeholder when there is none.
func (a *App) GetChalkboardPreview(id string, width, height float64) (string, error) {
	cb, ok := a.store.Chalkboard(id)
	if !ok {
		return "", fmt.Errorf("chalkboard %s not found", id)
	}
	return preview.DataURL(cb.PreviewImageData, canvas.Size{Width: width, Height: height}, a.cfg.PreviewQuality)
}

// ── Cards on a chalkboard ──────────────────────────────────

// DuplicateCard adds a blank copy of a card next to the original.
func (a *App) DuplicateCard(chalkboardID, cardID string) (domain.Card, error) {
	if s, ok := a.sessions.Get(chalkboardID); ok {
		cards := s.Cards()
		i := domain.IndexOfCard(cards, cardID)
		if i < 0 {
			return domain.Card{}, fmt.Errorf("card %s not on chalkboard", cardID)
		}
		cp := cards[i].Copy()
		s.SetCards(append(cards, cp))
		return cp, nil
	}
	cp, ok := a.store.DuplicateCardOnChalkboard(chalkboardID, cardID)
	if !ok {
		return domain.Card{}, fmt.Errorf("card %s not found on chalkboard %s", cardID, chalkboardID)
	}
	return cp, nil
}

func (a *App) SetCardLocked(chalkboardID, cardID string, locked bool) error {
	if s, ok := a.sessions.Get(chalkboardID); ok {
		cards := s.Cards()
		i := domain.IndexOfCard(cards, cardID)
		if i < 0 {
			return fmt.Errorf("card %s not on chalkboard", cardID)
		}
		cards[i].IsLocked = locked
		if locked {
			cards[i].IsEditing = false
		}
		s.UpdateCard(cards[i])
		return nil
	}
	if !a.store.SetCardLocked(chalkboardID, cardID, locked) {
		return fmt.Errorf("card %s not found on chalkboard %s", cardID, chalkboardID)
	}
	return nil
}

// ── Unassigned cards ───────────────────────────────────────

func (a *App) ListUnassignedCards() []domain.Card {
	return a.store.UnassignedCards()
}

func (a *App) CreateUnassignedCard() domain.Card {
	return a.store.CreateUnassignedCard()
}

func (a *App) UpdateUnassignedCard(card domain.Card) error {
	if !a.store.UpdateUnassignedCard(card) {
		return fmt.Errorf("card %s is not in the unassigned pool", card.ID)
	}
	return nil
}

func (a *App) DeleteUnassignedCard(id string) {
	a.store.DeleteUnassignedCard(id)
}

// AddCardToChalkboard moves an unassigned card onto a chalkboard. When the
// chalkboard is open the card lands in the middle of the current view and
// the session is flushed; otherwise the chalkboard's stored view is used.
func (a *App) AddCardToChalkboard(cardID, chalkboardID string) (domain.Card, error) {
	card, ok := a.store.UnassignedCard(cardID)
	if !ok {
		return domain.Card{}, fmt.Errorf("card %s is not in the unassigned pool", cardID)
	}

	if s, ok := a.sessions.Get(chalkboardID); ok {
		t := s.Transform()
		moved := card.Duplicate(canvas.NewCardPosition(a.store.Viewport(), t.Offset, t.Scale))
		s.SetCards(append(s.Cards(), moved))
		if err := s.Flush(); err != nil {
			return domain.Card{}, err
		}
		a.store.DeleteUnassignedCard(cardID)
		return moved, nil
	}

	moved, ok := a.store.AddCardToChalkboard(card, chalkboardID, canvas.Point{}, 0)
	if !ok {
		return domain.Card{}, fmt.Errorf("chalkboard %s not found", chalkboardID)
	}
	return moved, nil
}
