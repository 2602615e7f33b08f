// Package plugin implements the C8 plugin hub: discovery of external
// plugin manifests, permission gating, and dispatch of the six typed
// hooks across registered plugins in registration order.
package plugin

import (
	"context"
	"log/slog"
	"sync"

	"jotx/internal/domain"
)

// Registry holds the set of loaded plugins and dispatches hooks across
// them. Compile-time check: Registry implements search.PluginHub's shape
// via DispatchSearchAfter (kept duck-typed to avoid an import cycle).
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]domain.Plugin
	plugins []domain.Plugin
	logger  *slog.Logger
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{byName: make(map[string]domain.Plugin), logger: logger}
}

// Register adds a plugin, rejecting a duplicate name.
func (r *Registry) Register(p domain.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[p.Name()]; exists {
		return domain.NewError("plugin.register", domain.KindInvalidInput, "duplicate plugin name: "+p.Name())
	}
	r.byName[p.Name()] = p
	r.plugins = append(r.plugins, p)
	return nil
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []domain.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

func (r *Registry) forHook(name string) []domain.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Plugin
	for _, p := range r.plugins {
		if hasHook(p, name) {
			out = append(out, p)
		}
	}
	return out
}

func hasHook(p domain.Plugin, name string) bool {
	for _, h := range p.Hooks() {
		if h == name {
			return true
		}
	}
	return false
}

func (r *Registry) warn(name, hook string, err error) {
	r.logger.Warn("plugin hook failed, treating as continue", "plugin", name, "hook", hook, "error", err)
}

// DispatchCommandCaptured runs on_command_captured. A Skip or Stop from
// any plugin short-circuits the remaining chain; ModifyData replaces the
// context passed to the next plugin.
func (r *Registry) DispatchCommandCaptured(ctx context.Context, cc domain.CommandContext) (domain.HookResult, error) {
	for _, p := range r.forHook(domain.HookCommandCaptured) {
		res, err := p.OnCommandCaptured(ctx, cc)
		if err != nil {
			r.warn(p.Name(), domain.HookCommandCaptured, err)
			continue
		}
		switch res.Token {
		case domain.Stop, domain.Skip:
			return res, nil
		case domain.ModifyData:
			if data, ok := res.Data.(domain.CommandContext); ok {
				cc = data
			}
		}
	}
	return domain.HookResult{Token: domain.Continue, Data: cc}, nil
}

// DispatchSearchBefore runs on_search_before.
func (r *Registry) DispatchSearchBefore(ctx context.Context, query string) (domain.HookResult, error) {
	for _, p := range r.forHook(domain.HookSearchBefore) {
		res, err := p.OnSearchBefore(ctx, query)
		if err != nil {
			r.warn(p.Name(), domain.HookSearchBefore, err)
			continue
		}
		switch res.Token {
		case domain.Stop, domain.Skip:
			return res, nil
		case domain.ModifyData:
			if data, ok := res.Data.(string); ok {
				query = data
			}
		}
	}
	return domain.HookResult{Token: domain.Continue, Data: query}, nil
}

// DispatchSearchAfter runs on_search_after, letting plugins reorder or
// drop rows. It satisfies search.PluginHub.
func (r *Registry) DispatchSearchAfter(ctx context.Context, query string, results []domain.SearchResult) ([]domain.SearchResult, error) {
	for _, p := range r.forHook(domain.HookSearchAfter) {
		res, err := p.OnSearchAfter(ctx, query, results)
		if err != nil {
			r.warn(p.Name(), domain.HookSearchAfter, err)
			continue
		}
		switch res.Token {
		case domain.Stop, domain.Skip:
			return results, nil
		case domain.ModifyData:
			if data, ok := res.Data.([]domain.SearchResult); ok {
				results = data
			}
		}
	}
	return results, nil
}

// DispatchLLMBefore runs on_llm_before.
func (r *Registry) DispatchLLMBefore(ctx context.Context, prompt string, lc domain.LLMContext) (domain.HookResult, error) {
	for _, p := range r.forHook(domain.HookLLMBefore) {
		res, err := p.OnLLMBefore(ctx, prompt, lc)
		if err != nil {
			r.warn(p.Name(), domain.HookLLMBefore, err)
			continue
		}
		switch res.Token {
		case domain.Stop, domain.Skip:
			return res, nil
		case domain.ModifyData:
			if data, ok := res.Data.(string); ok {
				prompt = data
			}
		}
	}
	return domain.HookResult{Token: domain.Continue, Data: prompt}, nil
}

// DispatchLLMAfter runs on_llm_after.
func (r *Registry) DispatchLLMAfter(ctx context.Context, prompt, response string, lc domain.LLMContext) (domain.HookResult, error) {
	for _, p := range r.forHook(domain.HookLLMAfter) {
		res, err := p.OnLLMAfter(ctx, prompt, response, lc)
		if err != nil {
			r.warn(p.Name(), domain.HookLLMAfter, err)
			continue
		}
		switch res.Token {
		case domain.Stop, domain.Skip:
			return res, nil
		case domain.ModifyData:
			if data, ok := res.Data.(string); ok {
				response = data
			}
		}
	}
	return domain.HookResult{Token: domain.Continue, Data: response}, nil
}

// DispatchDaemonTick runs on_daemon_tick; no plugin mutates tick data, so
// Stop/Skip simply end the chain early and ModifyData is a no-op.
func (r *Registry) DispatchDaemonTick(ctx context.Context, tc domain.TickContext) {
	for _, p := range r.forHook(domain.HookDaemonTick) {
		res, err := p.OnDaemonTick(ctx, tc)
		if err != nil {
			r.warn(p.Name(), domain.HookDaemonTick, err)
			continue
		}
		if res.Token == domain.Stop || res.Token == domain.Skip {
			return
		}
	}
}
