package capture

import (
	"context"
	"sync"

	"jotx/internal/domain"
)

// SettingsStore is the subset of internal/store/sqlite.Store the
// settings cache needs.
type SettingsStore interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
}

// SettingsCache holds the store-backed capture settings in memory,
// refreshed on demand (typically by the daemon-tick hook, so a change
// made via the `settings` CLI command takes effect within one tick
// rather than requiring a restart). It implements both
// capture.SettingsProvider and capture.ShellSettingsProvider.
type SettingsCache struct {
	store SettingsStore

	mu  sync.RWMutex
	cur domain.Settings
}

// NewSettingsCache builds a cache seeded with domain.DefaultSettings
// until the first Refresh succeeds.
func NewSettingsCache(store SettingsStore) *SettingsCache {
	return &SettingsCache{store: store, cur: domain.DefaultSettings()}
}

// Refresh reloads settings from the store. A failure leaves the
// previously cached values in place.
func (c *SettingsCache) Refresh(ctx context.Context) error {
	s, err := c.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cur = s
	c.mu.Unlock()
	return nil
}

func (c *SettingsCache) snapshot() domain.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

func (c *SettingsCache) CaptureClipboardEnabled() bool { return c.snapshot().CaptureClipboard }
func (c *SettingsCache) ClipboardCaseSensitive() bool  { return c.snapshot().ClipboardCaseSensitive }
func (c *SettingsCache) CaptureShellEnabled() bool     { return c.snapshot().CaptureShell }
func (c *SettingsCache) ShellCaseSensitive() bool      { return c.snapshot().ShellCaseSensitive }
