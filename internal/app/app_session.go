package app

// ─────────────────────────────────────────────────────────────
// Editing Session Handlers — one autosaving session per open chalkboard
// ─────────────────────────────────────────────────────────────

import (
	"errors"
	"fmt"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
	"chalkboard/internal/service"
)

// OpenChalkboard starts editing a chalkboard, or returns the session that
// is already editing it.
func (a *App) OpenChalkboard(id string) (*SessionView, error) {
	s, err := a.sessions.Open(a.store, id, service.SessionOptions{
		Interval:   a.cfg.AutosaveInterval,
		Rasterizer: a.renderer,
	})
	if errors.Is(err, service.ErrSessionBusy) {
		var ok bool
		if s, ok = a.sessions.Get(id); !ok {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	wailsRuntime.LogInfof(a.ctx, "[OpenChalkboard] %s", id)
	return a.view(s), nil
}

// CloseChalkboard ends the session, saving it if it has unsaved changes.
func (a *App) CloseChalkboard(id string) {
	a.sessions.Close(id)
}

func (a *App) GetSession(id string) (*SessionView, error) {
	s, err := a.session(id)
	if err != nil {
		return nil, err
	}
	return a.view(s), nil
}

// SaveChalkboard writes the session now, whatever its state.
func (a *App) SaveChalkboard(id string) error {
	s, err := a.session(id)
	if err != nil {
		return err
	}
	return s.Flush()
}

// ── Content ────────────────────────────────────────────────

func (a *App) SetDrawing(id string, d ink.Drawing) error {
	s, err := a.session(id)
	if err != nil {
		return err
	}
	s.SetDrawing(d)
	return nil
}

func (a *App) SetCards(id string, cards []domain.Card) error {
	s, err := a.session(id)
	if err != nil {
		return err
	}
	s.SetCards(cards)
	return nil
}

func (a *App) UpdateCard(id string, card domain.Card) error {
	s, err := a.session(id)
	if err != nil {
		return err
	}
	if !s.UpdateCard(card) {
		return fmt.Errorf("card %s not on chalkboard", card.ID)
	}
	return nil
}

func (a *App) AddCard(id string) (domain.Card, error) {
	s, err := a.session(id)
	if err != nil {
		return domain.Card{}, err
	}
	return s.AddCard(), nil
}

func (a *App) RemoveCard(id, cardID string) error {
	s, err := a.session(id)
	if err != nil {
		return err
	}
	s.RemoveCard(cardID)
	return nil
}

// ── Selection ──────────────────────────────────────────────

func (a *App) SelectCard(id, cardID string) (bool, error) {
	s, err := a.session(id)
	if err != nil {
		return false, err
	}
	return s.SelectCard(cardID), nil
}

func (a *App) DeselectCards(id string) error {
	s, err := a.session(id)
	if err != nil {
		return err
	}
	return s.DeselectCards()
}

// FocusCard centers the view on a card and returns the new transform.
func (a *App) FocusCard(id, cardID string) (canvas.Transform, error) {
	s, err := a.session(id)
	if err != nil {
		return canvas.Transform{}, err
	}
	if err := s.FocusCard(cardID); err != nil {
		return canvas.Transform{}, err
	}
	return s.Transform(), nil
}

// ── View ───────────────────────────────────────────────────

func (a *App) Pan(id string, dx, dy float64) (canvas.Transform, error) {
	s, err := a.session(id)
	if err != nil {
		return canvas.Transform{}, err
	}
	s.Pan(canvas.Point{X: dx, Y: dy})
	return s.Transform(), nil
}

func (a *App) ZoomAt(id string, scale, anchorX, anchorY float64) (canvas.Transform, error) {
	s, err := a.session(id)
	if err != nil {
		return canvas.Transform{}, err
	}
	s.ZoomAt(scale, canvas.Point{X: anchorX, Y: anchorY})
	return s.Transform(), nil
}

func (a *App) SetTransform(id string, t canvas.Transform) error {
	s, err := a.session(id)
	if err != nil {
		return err
	}
	s.SetTransform(t)
	return nil
}

func (a *App) ResetView(id string) (canvas.Transform, error) {
	s, err := a.session(id)
	if err != nil {
		return canvas.Transform{}, err
	}
	s.ResetView()
	return s.Transform(), nil
}

func (a *App) VisibleTiles(id string) ([]canvas.Rect, error) {
	s, err := a.session(id)
	if err != nil {
		return nil, err
	}
	return s.VisibleTiles(), nil
}

// ResizeViewport is called by the frontend when the canvas area changes size.
// The size is remembered for the next launch.
func (a *App) ResizeViewport(width, height float64) error {
	size := canvas.Size{Width: width, Height: height}
	a.store.SetViewport(size)
	for _, s := range a.sessions.All() {
		s.SetViewport(size)
	}
	return a.viewport.SaveViewport(size)
}

// ── Coordinate helpers ─────────────────────────────────────

func (a *App) CanvasToScreen(p canvas.Point, t canvas.Transform) canvas.Point {
	return canvas.CanvasToScreen(p, t.Offset, canvas.NormalizeScale(t.Scale))
}

func (a *App) ScreenToCanvas(p canvas.Point, t canvas.Transform) canvas.Point {
	return canvas.ScreenToCanvas(p, t.Offset, canvas.NormalizeScale(t.Scale))
}

func (a *App) session(id string) (*service.Session, error) {
	s, ok := a.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("chalkboard %s is not open", id)
	}
	return s, nil
}

func (a *App) view(s *service.Session) *SessionView {
	name := ""
	if cb, ok := a.store.Chalkboard(s.ChalkboardID()); ok {
		name = cb.Name
	}
	return sessionView(s, name)
}
