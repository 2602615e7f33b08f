package domain

import (
	"context"
	"time"
)

// ControlToken is the result a hook returns to the dispatcher.
type ControlToken int

const (
	Continue ControlToken = iota
	Stop
	ModifyData
	Skip
)

// CommandContext is passed to OnCommandCaptured.
type CommandContext struct {
	Content    string
	WorkingDir string
	User       string
	Host       string
	AppName    string
	WindowTitle string
	Timestamp  int64
}

// LLMContext is passed to OnLLMBefore/OnLLMAfter.
type LLMContext struct {
	Model      string
	Provider   string
	WorkingDir string
}

// TickContext is passed to OnDaemonTick.
type TickContext struct {
	Timestamp int64
}

// HookResult is the outcome of a single hook invocation: a control token
// plus, for ModifyData, the replacement payload (same shape as the input
// the hook received).
type HookResult struct {
	Token ControlToken
	Data  any
}

// Plugin is the capability surface a plugin may implement. Every method
// is optional in spirit — built-in, scripted, and subprocess plugins
// implement only the hooks they declare in their manifest; a dispatcher
// checks manifest.Hooks before invoking.
type Plugin interface {
	Name() string
	Hooks() []string
	OnCommandCaptured(ctx context.Context, cc CommandContext) (HookResult, error)
	OnSearchBefore(ctx context.Context, query string) (HookResult, error)
	OnSearchAfter(ctx context.Context, query string, results []SearchResult) (HookResult, error)
	OnLLMBefore(ctx context.Context, prompt string, lc LLMContext) (HookResult, error)
	OnLLMAfter(ctx context.Context, prompt, response string, lc LLMContext) (HookResult, error)
	OnDaemonTick(ctx context.Context, tc TickContext) (HookResult, error)
}

// PluginManifest describes an external plugin's plugin.yaml, discovered by
// scanning the configured plugin directories.
type PluginManifest struct {
	Name        string            `yaml:"name" toml:"name"`
	Version     string            `yaml:"version" toml:"version"`
	Hooks       []string          `yaml:"hooks" toml:"hooks"`
	Permissions []string          `yaml:"permissions" toml:"permissions"`
	Types       []string          `yaml:"types" toml:"types"`
	Path        string            `yaml:"path" toml:"path"` // subprocess executable, relative to the plugin's directory
	WASMConfig  *WASMPluginConfig `yaml:"wasm,omitempty" toml:"wasm,omitempty"`
}

// WASMPluginConfig describes a scripted plugin's compiled WASM binary and
// the sandbox it runs under.
type WASMPluginConfig struct {
	Binary       string        `yaml:"binary"`
	MaxMemoryMB  int           `yaml:"max_memory_mb"`
	ExecTimeout  time.Duration `yaml:"exec_timeout"`
	Capabilities []string      `yaml:"capabilities"`
}

const (
	PluginTypeBuiltin    = "builtin"
	PluginTypeSubprocess = "subprocess"
	PluginTypeWASM       = "wasm"
)

const (
	HookCommandCaptured = "on_command_captured"
	HookSearchBefore    = "on_search_before"
	HookSearchAfter     = "on_search_after"
	HookLLMBefore       = "on_llm_before"
	HookLLMAfter        = "on_llm_after"
	HookDaemonTick      = "on_daemon_tick"
)

// HasHook reports whether a manifest declares the given hook name.
func (m PluginManifest) HasHook(name string) bool {
	for _, h := range m.Hooks {
		if h == name {
			return true
		}
	}
	return false
}
