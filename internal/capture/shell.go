package capture

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jotx/internal/domain"
)

const (
	// shellSweepPeriod is the history-file sweep cadence (spec.md §4.4).
	shellSweepPeriod = 3600 * time.Second
)

// cliNames are the tool's own command names; commands prefixed with any
// of these are always dropped so the tool never captures its own
// invocations (spec.md §4.4).
var cliNames = []string{"jotx", "jotxd"}

// PluginHub is the subset of internal/plugin.Registry shell intake needs.
type PluginHub interface {
	DispatchCommandCaptured(ctx context.Context, cc domain.CommandContext) (domain.HookResult, error)
}

// ShellSettingsProvider supplies the mutable shell-capture toggles.
type ShellSettingsProvider interface {
	CaptureShellEnabled() bool
	ShellCaseSensitive() bool
}

// historySource is one known history file and the parser for its format.
type historySource struct {
	path   string
	parser func([]byte) []HistoryCommand
}

// ShellIntake accepts commands from two feeds — on-demand pushes from
// shell hooks, and periodic sweeps of bash/zsh/fish history files — and
// funnels both through the same gating pipeline: own-CLI-name filter,
// case-fold, plugin hub dispatch, then enqueue. Grounded on
// original_source/src/shell/shell_mon.rs (the feed concept) and
// spec.md §4.4's documented history-file formats; the format parsers
// themselves are hand-written since no pack example has one.
type ShellIntake struct {
	sink     Sink
	hub      PluginHub
	window   WindowContext
	settings ShellSettingsProvider
	logger   *slog.Logger

	sources []historySource
	seen    map[string]int // path → number of entries already processed
}

// NewShellIntake builds a ShellIntake watching the standard bash/zsh/fish
// history file locations under home. window may be nil.
func NewShellIntake(sink Sink, hub PluginHub, settings ShellSettingsProvider, window WindowContext, logger *slog.Logger, home string) *ShellIntake {
	if window == nil {
		window = NewWindowContext()
	}
	return &ShellIntake{
		sink:     sink,
		hub:      hub,
		window:   window,
		settings: settings,
		logger:   logger,
		seen:     make(map[string]int),
		sources: []historySource{
			{path: filepath.Join(home, ".bash_history"), parser: ParseBashHistory},
			{path: filepath.Join(home, ".zsh_history"), parser: ParseZshHistory},
			{path: filepath.Join(home, ".local", "share", "fish", "fish_history"), parser: ParseFishHistory},
		},
	}
}

// Run sweeps history files every shellSweepPeriod until ctx is cancelled.
// The first sweep happens immediately so a freshly started daemon
// catches commands run before it launched.
func (i *ShellIntake) Run(ctx context.Context) {
	i.sweep(ctx)

	ticker := time.NewTicker(shellSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.sweep(ctx)
		}
	}
}

func (i *ShellIntake) sweep(ctx context.Context) {
	if i.settings != nil && !i.settings.CaptureShellEnabled() {
		return
	}
	for _, src := range i.sources {
		i.sweepOne(ctx, src)
	}
}

func (i *ShellIntake) sweepOne(ctx context.Context, src historySource) {
	data, err := os.ReadFile(src.path)
	if err != nil {
		return // history file absent (shell not used / not installed) — not an error
	}
	commands := src.parser(data)
	offset := i.seen[src.path]
	if offset > len(commands) {
		offset = 0 // file was truncated/rotated; reprocess from the start
	}
	fresh := commands[offset:]
	i.seen[src.path] = len(commands)

	cwd, _ := os.Getwd()
	for _, cmd := range fresh {
		ts := cmd.Timestamp
		if ts == 0 {
			ts = time.Now().Unix()
		}
		i.capture(ctx, cmd.Content, cwd, ts)
	}
}

// PushCommand accepts an on-demand command pushed from a shell hook
// (the `capture --cmd` CLI target). workingDir is the caller's cwd at
// the time the command ran.
func (i *ShellIntake) PushCommand(ctx context.Context, content, workingDir string) {
	i.capture(ctx, content, workingDir, time.Now().Unix())
}

func (i *ShellIntake) capture(ctx context.Context, content, workingDir string, timestamp int64) {
	content = strings.TrimSpace(content)
	if content == "" || hasCLIPrefix(content) {
		return
	}

	caseSensitive := i.settings == nil || i.settings.ShellCaseSensitive()
	if !caseSensitive {
		content = strings.ToLower(content)
	}

	appName, windowTitle := i.window.Current()
	cc := domain.CommandContext{
		Content:     content,
		WorkingDir:  workingDir,
		User:        currentUser(),
		Host:        currentHost(),
		AppName:     appName,
		WindowTitle: windowTitle,
		Timestamp:   timestamp,
	}

	if i.hub != nil {
		res, err := i.hub.DispatchCommandCaptured(ctx, cc)
		if err != nil {
			i.logger.Warn("plugin hub dispatch failed, continuing", "error", err)
		} else {
			switch res.Token {
			case domain.Stop, domain.Skip:
				return
			case domain.ModifyData:
				if data, ok := res.Data.(domain.CommandContext); ok {
					cc = data
				}
			}
		}
	}

	gitRepo, gitBranch := gitContext(workingDir)
	entry := domain.Entry{
		Kind:        domain.EntryShell,
		Content:     cc.Content,
		Timestamp:   cc.Timestamp,
		WorkingDir:  cc.WorkingDir,
		User:        cc.User,
		Host:        cc.Host,
		AppName:     cc.AppName,
		WindowTitle: cc.WindowTitle,
		GitRepo:     gitRepo,
		GitBranch:   gitBranch,
	}

	if err := i.sink.Enqueue(entry); err != nil {
		i.logger.Warn("shell capture dropped", "error", err)
	}
}

func hasCLIPrefix(content string) bool {
	for _, name := range cliNames {
		if content == name || strings.HasPrefix(content, name+" ") {
			return true
		}
	}
	return false
}
