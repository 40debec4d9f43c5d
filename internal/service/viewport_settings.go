package service

import (
	"database/sql"
	"fmt"

	"chalkboard/internal/canvas"
	"chalkboard/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Viewport Size Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the window's canvas viewport between sessions, so new
// chalkboards are centered and new cards placed for the real window size.
// Stored in SQLite as key-value rows in app_settings.

// ViewportSettingsService persists the viewport size between sessions.
type ViewportSettingsService struct {
	db       *storage.DB
	fallback canvas.Size
}

// NewViewportSettingsService creates a ViewportSettingsService. fallback is
// returned until a size has been saved.
func NewViewportSettingsService(db *storage.DB, fallback canvas.Size) *ViewportSettingsService {
	return &ViewportSettingsService{db: db, fallback: fallback}
}

const (
	settingViewportWidth  = "viewport_width"
	settingViewportHeight = "viewport_height"
	minViewportEdge       = 200
)

// LoadViewport returns the saved viewport, or the fallback.
func (s *ViewportSettingsService) LoadViewport() canvas.Size {
	if s.db == nil {
		return s.fallback
	}
	conn := s.db.Conn()

	w := s.fallback.Width
	h := s.fallback.Height
	row := conn.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, settingViewportWidth)
	row.Scan(&w)
	row = conn.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, settingViewportHeight)
	row.Scan(&h)

	if w < minViewportEdge {
		w = s.fallback.Width
	}
	if h < minViewportEdge {
		h = s.fallback.Height
	}
	return canvas.Size{Width: w, Height: h}
}

// SaveViewport persists the current viewport dimensions.
func (s *ViewportSettingsService) SaveViewport(size canvas.Size) error {
	if s.db == nil {
		return fmt.Errorf("viewport settings: no db")
	}
	if size.Width < minViewportEdge || size.Height < minViewportEdge {
		return fmt.Errorf("viewport settings: %vx%v too small", size.Width, size.Height)
	}
	conn := s.db.Conn()
	if err := upsertSetting(conn, settingViewportWidth, size.Width); err != nil {
		return err
	}
	return upsertSetting(conn, settingViewportHeight, size.Height)
}

func upsertSetting(conn *sql.DB, key string, value float64) error {
	_, err := conn.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
