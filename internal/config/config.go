// Package config resolves runtime settings from an optional .env file and
// the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"chalkboard/internal/canvas"
)

const (
	EnvDataDir          = "CHALKBOARD_DATA_DIR"
	EnvStoreDriver      = "CHALKBOARD_STORE_DRIVER"
	EnvStoreDSN         = "CHALKBOARD_STORE_DSN"
	EnvAutosaveInterval = "CHALKBOARD_AUTOSAVE_INTERVAL"
	EnvPreviewScale     = "CHALKBOARD_PREVIEW_SCALE"
	EnvPreviewQuality   = "CHALKBOARD_PREVIEW_QUALITY"
	EnvViewportWidth    = "CHALKBOARD_VIEWPORT_WIDTH"
	EnvViewportHeight   = "CHALKBOARD_VIEWPORT_HEIGHT"
	EnvWriteTimeout     = "CHALKBOARD_WRITE_TIMEOUT"
	EnvLogLevel         = "CHALKBOARD_LOG_LEVEL"
)

const (
	DefaultStoreDriver      = "sqlite"
	DefaultAutosaveInterval = 600 * time.Second
	DefaultPreviewScale     = 2.0
	DefaultPreviewQuality   = 70
	DefaultWriteTimeout     = 10 * time.Second
	DefaultLogLevel         = logrus.InfoLevel
)

var DefaultViewport = canvas.Size{Width: 1280, Height: 800}

// Config holds everything the app and the standalone MCP server need to start.
type Config struct {
	DataDir          string
	StoreDriver      string
	StoreDSN         string
	AutosaveInterval time.Duration
	PreviewScale     float64
	PreviewQuality   int
	Viewport         canvas.Size
	WriteTimeout     time.Duration
	LogLevel         logrus.Level

	// Warnings lists values that were invalid and replaced by defaults.
	Warnings []string
}

// DBPath is the SQLite file inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "chalkboard.db")
}

// SlotDSN is the DSN for the slot store; SQLite defaults to DBPath.
func (c Config) SlotDSN() string {
	if c.StoreDSN == "" && c.StoreDriver == DefaultStoreDriver {
		return c.DBPath()
	}
	return c.StoreDSN
}

// Load reads .env files (if present) and then the environment.
// Existing environment variables win over .env entries.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				logrus.WithError(err).WithField("file", f).Warn("config: could not load env file")
			}
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a lookup function such as os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) Config {
	p := parser{lookup: lookup}
	cfg := Config{
		DataDir:          p.str(EnvDataDir, defaultDataDir()),
		StoreDriver:      strings.ToLower(p.str(EnvStoreDriver, DefaultStoreDriver)),
		StoreDSN:         p.str(EnvStoreDSN, ""),
		AutosaveInterval: p.duration(EnvAutosaveInterval, DefaultAutosaveInterval),
		PreviewScale:     p.positiveFloat(EnvPreviewScale, DefaultPreviewScale),
		PreviewQuality:   p.intRange(EnvPreviewQuality, DefaultPreviewQuality, 1, 100),
		Viewport: canvas.Size{
			Width:  p.positiveFloat(EnvViewportWidth, DefaultViewport.Width),
			Height: p.positiveFloat(EnvViewportHeight, DefaultViewport.Height),
		},
		WriteTimeout: p.duration(EnvWriteTimeout, DefaultWriteTimeout),
		LogLevel:     p.level(EnvLogLevel, DefaultLogLevel),
	}
	cfg.Warnings = p.warnings
	return cfg
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "chalkboard")
}

type parser struct {
	lookup   func(string) (string, bool)
	warnings []string
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) warn(key, value string, def any) {
	p.warnings = append(p.warnings, fmt.Sprintf("%s=%q is invalid, using %v", key, value, def))
}

func (p *parser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// bare numbers are seconds
		if n, nerr := strconv.Atoi(v); nerr == nil {
			d, err = time.Duration(n)*time.Second, nil
		}
	}
	if err != nil || d <= 0 {
		p.warn(key, v, def)
		return def
	}
	return d
}

func (p *parser) positiveFloat(key string, def float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		p.warn(key, v, def)
		return def
	}
	return f
}

func (p *parser) intRange(key string, def, lo, hi int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		p.warn(key, v, def)
		return def
	}
	return n
}

func (p *parser) level(key string, def logrus.Level) logrus.Level {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	lvl, err := logrus.ParseLevel(v)
	if err != nil {
		p.warn(key, v, def)
		return def
	}
	return lvl
}

// ApplyLogging sets the global logrus level and reports config warnings.
func (c Config) ApplyLogging() {
	logrus.SetLevel(c.LogLevel)
	for _, w := range c.Warnings {
		logrus.Warn("config: " + w)
	}
}
