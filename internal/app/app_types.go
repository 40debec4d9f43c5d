package app

import (
	"time"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
	"chalkboard/internal/ink"
	"chalkboard/internal/service"
)

// ChalkboardView is the list-row view of a chalkboard. The preview is
// fetched lazily with GetChalkboardPreview.
type ChalkboardView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CardCount    int       `json:"cardCount"`
	LastEditDate time.Time `json:"lastEditDate"`
	HasPreview   bool      `json:"hasPreview"`
	IsOpen       bool      `json:"isOpen"`
}

// SessionView is the editable state of an open chalkboard.
type SessionView struct {
	ChalkboardID  string           `json:"chalkboardId"`
	Name          string           `json:"name"`
	Drawing       ink.Drawing      `json:"drawing"`
	Cards         []domain.Card    `json:"cards"`
	EditingCardID string           `json:"editingCardId,omitempty"`
	Transform     canvas.Transform `json:"transform"`
	VisibleTiles  []canvas.Rect    `json:"visibleTiles"`
	State         string           `json:"state"`
}

func chalkboardView(cb domain.Chalkboard, open bool) ChalkboardView {
	return ChalkboardView{
		ID:           cb.ID,
		Name:         cb.Name,
		CardCount:    len(cb.Cards),
		LastEditDate: cb.LastEditDate,
		HasPreview:   len(cb.PreviewImageData) > 0,
		IsOpen:       open,
	}
}

func sessionView(s *service.Session, name string) *SessionView {
	cards := s.Cards()
	v := &SessionView{
		ChalkboardID: s.ChalkboardID(),
		Name:         name,
		Drawing:      s.Drawing(),
		Cards:        cards,
		Transform:    s.Transform(),
		VisibleTiles: s.VisibleTiles(),
		State:        s.State().String(),
	}
	for _, c := range cards {
		if c.IsEditing {
			v.EditingCardID = c.ID
		}
	}
	return v
}
