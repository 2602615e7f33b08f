// Package pluginsdk provides types and helpers for jotx plugin developers.
//
// It re-exports the jotx/internal/domain plugin surface so that in-tree
// built-in plugins, and any out-of-tree plugin compiled into the module,
// depend on a single stable import instead of reaching into internal/.
package pluginsdk

import (
	"context"

	"jotx/internal/domain"
)

// Re-exported domain types for plugin developers.
type (
	Plugin         = domain.Plugin
	PluginManifest = domain.PluginManifest
	ControlToken   = domain.ControlToken
	HookResult     = domain.HookResult
	CommandContext = domain.CommandContext
	LLMContext     = domain.LLMContext
	TickContext    = domain.TickContext
	SearchResult   = domain.SearchResult

	WASMPluginConfig = domain.WASMPluginConfig
)

// Re-exported control tokens.
const (
	Continue   = domain.Continue
	Stop       = domain.Stop
	ModifyData = domain.ModifyData
	Skip       = domain.Skip
)

// Re-exported hook names, matching PluginManifest.Hooks entries.
const (
	HookCommandCaptured = domain.HookCommandCaptured
	HookSearchBefore    = domain.HookSearchBefore
	HookSearchAfter     = domain.HookSearchAfter
	HookLLMBefore       = domain.HookLLMBefore
	HookLLMAfter        = domain.HookLLMAfter
	HookDaemonTick      = domain.HookDaemonTick
)

// Re-exported plugin type constants.
const (
	TypeBuiltin    = domain.PluginTypeBuiltin
	TypeSubprocess = domain.PluginTypeSubprocess
	TypeWASM       = domain.PluginTypeWASM
)

// BasePlugin provides Continue-everywhere no-op implementations of the
// Plugin interface. Embed this in a plugin struct and override only the
// hooks named in its manifest.
type BasePlugin struct {
	PluginName string
	HookNames  []string
}

// NewBasePlugin creates a BasePlugin advertising the given name and hooks.
func NewBasePlugin(name string, hooks []string) BasePlugin {
	return BasePlugin{PluginName: name, HookNames: hooks}
}

func (b BasePlugin) Name() string    { return b.PluginName }
func (b BasePlugin) Hooks() []string { return b.HookNames }

func (b BasePlugin) OnCommandCaptured(_ context.Context, cc CommandContext) (HookResult, error) {
	return HookResult{Token: Continue, Data: cc}, nil
}

func (b BasePlugin) OnSearchBefore(_ context.Context, query string) (HookResult, error) {
	return HookResult{Token: Continue, Data: query}, nil
}

func (b BasePlugin) OnSearchAfter(_ context.Context, _ string, results []SearchResult) (HookResult, error) {
	return HookResult{Token: Continue, Data: results}, nil
}

func (b BasePlugin) OnLLMBefore(_ context.Context, prompt string, _ LLMContext) (HookResult, error) {
	return HookResult{Token: Continue, Data: prompt}, nil
}

func (b BasePlugin) OnLLMAfter(_ context.Context, _ string, response string, _ LLMContext) (HookResult, error) {
	return HookResult{Token: Continue, Data: response}, nil
}

func (b BasePlugin) OnDaemonTick(_ context.Context, _ TickContext) (HookResult, error) {
	return HookResult{Token: Continue}, nil
}
