package capture

import (
	"container/ring"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"jotx/internal/domain"
)

const (
	// clipboardPollPeriod is the clipboard check cadence (spec.md §4.4).
	clipboardPollPeriod = 1 * time.Second
	// clipboardHistoryCap mirrors clip_mon.rs's MAX_HISTORY ring buffer.
	clipboardHistoryCap = 100
)

// Sink is the subset of internal/pipeline.Writer a capture source needs.
type Sink interface {
	Enqueue(e domain.Entry) error
}

// SettingsProvider supplies the mutable capture toggles and case-folding
// settings, re-read on every poll so a live settings change takes effect
// without a daemon restart.
type SettingsProvider interface {
	CaptureClipboardEnabled() bool
	ClipboardCaseSensitive() bool
}

// ClipboardPoller polls the system clipboard at clipboardPollPeriod,
// enqueuing a new entry only when the content changed from the last
// non-empty value captured (edge-dedup). The plugin hub's capture hook
// is never invoked for clipboard (spec.md §4.4). Grounded on
// original_source/src/clipboard/clip_mon.rs's ClipMon: ring-buffer
// history plus an edge-compare against last_clip.
type ClipboardPoller struct {
	sink     Sink
	window   WindowContext
	settings SettingsProvider
	logger   *slog.Logger

	lastClip string
	history  *ring.Ring
}

// NewClipboardPoller builds a poller. window may be nil (defaults to
// NewWindowContext()).
func NewClipboardPoller(sink Sink, settings SettingsProvider, window WindowContext, logger *slog.Logger) *ClipboardPoller {
	if window == nil {
		window = NewWindowContext()
	}
	return &ClipboardPoller{
		sink:     sink,
		window:   window,
		settings: settings,
		logger:   logger,
		history:  ring.New(clipboardHistoryCap),
	}
}

// Run polls until ctx is cancelled.
func (p *ClipboardPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(clipboardPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check()
		}
	}
}

func (p *ClipboardPoller) check() {
	if p.settings != nil && !p.settings.CaptureClipboardEnabled() {
		return
	}

	content, err := clipboard.ReadAll()
	if err != nil || content == "" {
		return
	}

	caseSensitive := p.settings == nil || p.settings.ClipboardCaseSensitive()
	compareContent := content
	if !caseSensitive {
		compareContent = strings.ToLower(compareContent)
	}
	if compareContent == p.lastClip {
		return
	}
	p.lastClip = compareContent

	stored := content
	if !caseSensitive {
		stored = strings.ToLower(stored)
	}

	appName, windowTitle := p.window.Current()
	now := time.Now().Unix()

	entry := domain.Entry{
		Kind:        domain.EntryClipboard,
		Content:     stored,
		Timestamp:   now,
		User:        currentUser(),
		Host:        currentHost(),
		AppName:     appName,
		WindowTitle: windowTitle,
	}

	p.history.Value = entry
	p.history = p.history.Next()

	if err := p.sink.Enqueue(entry); err != nil {
		p.logger.Warn("clipboard capture dropped", "error", err)
	}
}
