package wasm

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"jotx/internal/domain"
)

// WASMPlugin wraps a compiled WASM module as a domain.Plugin. Each of the
// six hooks maps to an optionally-exported guest function of the same
// name taking (ptr, len) and returning a domain.ControlToken; a guest
// that wants ModifyData calls emit_result before returning.
type WASMPlugin struct {
	manifest domain.PluginManifest
	module   api.Module
	compiled wazero.CompiledModule
	runtime  *Runtime
	sandbox  *Sandbox
	hostEnv  *hostEnv
	logger   *slog.Logger
}

var _ domain.Plugin = (*WASMPlugin)(nil)

// LoadPlugin compiles and instantiates a .wasm binary as a domain.Plugin.
// configJSON is handed to the guest verbatim via get_config.
func LoadPlugin(ctx context.Context, rt *Runtime, wasmPath string, manifest domain.PluginManifest, sandbox *Sandbox, configJSON json.RawMessage) (*WASMPlugin, error) {
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, domain.NewError("wasm.load_plugin", domain.KindInvalidInput, "read "+wasmPath+": "+err.Error())
	}

	compiled, err := rt.Inner().CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, domain.NewError("wasm.load_plugin", domain.KindInvalidInput, "compile: "+err.Error())
	}

	logger := rt.logger.With("plugin", manifest.Name)

	env := &hostEnv{
		sandbox: sandbox,
		logger:  logger,
		config:  configJSON,
	}

	hostCompiled, err := RegisterHostFunctions(ctx, rt.Inner(), env)
	if err != nil {
		return nil, err
	}
	if _, err := rt.Inner().InstantiateModule(ctx, hostCompiled, wazero.NewModuleConfig().WithName(HostModule)); err != nil {
		return nil, domain.NewError("wasm.load_plugin", domain.KindExternal, "instantiate host module: "+err.Error())
	}

	modCfg := wazero.NewModuleConfig().
		WithName(manifest.Name).
		WithStartFunctions() // don't auto-call _start; we call _init explicitly

	mod, err := rt.Inner().InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, domain.NewError("wasm.load_plugin", domain.KindExternal, "instantiate guest: "+err.Error())
	}

	p := &WASMPlugin{
		manifest: manifest,
		module:   mod,
		compiled: compiled,
		runtime:  rt,
		sandbox:  sandbox,
		hostEnv:  env,
		logger:   logger,
	}

	if initFn := mod.ExportedFunction("_init"); initFn != nil {
		execCtx, cancel := context.WithTimeout(ctx, sandbox.ExecTimeout())
		defer cancel()
		if _, err := initFn.Call(execCtx); err != nil {
			return nil, domain.NewError("wasm.load_plugin", domain.KindExternal, "_init: "+err.Error())
		}
	}

	logger.Info("wasm plugin loaded", "path", wasmPath, "hooks", manifest.Hooks)

	return p, nil
}

// Name implements domain.Plugin.
func (p *WASMPlugin) Name() string { return p.manifest.Name }

// Hooks implements domain.Plugin.
func (p *WASMPlugin) Hooks() []string { return p.manifest.Hooks }

// Close releases the guest module's resources. Not part of domain.Plugin;
// called by whatever owns the plugin's lifecycle (the daemon's plugin
// loader) during shutdown.
func (p *WASMPlugin) Close() error {
	if closeFn := p.module.ExportedFunction("_close"); closeFn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := closeFn.Call(ctx); err != nil {
			p.logger.Warn("wasm _close failed", "error", err)
		}
	}
	return p.module.Close(context.Background())
}

// OnCommandCaptured implements domain.Plugin.
func (p *WASMPlugin) OnCommandCaptured(ctx context.Context, cc domain.CommandContext) (domain.HookResult, error) {
	token, out, err := p.callHook(ctx, domain.HookCommandCaptured, cc)
	if err != nil {
		return domain.HookResult{}, err
	}
	res := domain.HookResult{Token: token, Data: cc}
	if token == domain.ModifyData && out != nil {
		var modified domain.CommandContext
		if jsonErr := json.Unmarshal(out, &modified); jsonErr == nil {
			res.Data = modified
		}
	}
	return res, nil
}

// OnSearchBefore implements domain.Plugin.
func (p *WASMPlugin) OnSearchBefore(ctx context.Context, query string) (domain.HookResult, error) {
	token, out, err := p.callHook(ctx, domain.HookSearchBefore, query)
	if err != nil {
		return domain.HookResult{}, err
	}
	res := domain.HookResult{Token: token, Data: query}
	if token == domain.ModifyData && out != nil {
		var modified string
		if jsonErr := json.Unmarshal(out, &modified); jsonErr == nil {
			res.Data = modified
		}
	}
	return res, nil
}

// OnSearchAfter implements domain.Plugin.
func (p *WASMPlugin) OnSearchAfter(ctx context.Context, query string, results []domain.SearchResult) (domain.HookResult, error) {
	payload := struct {
		Query   string                `json:"query"`
		Results []domain.SearchResult `json:"results"`
	}{Query: query, Results: results}

	token, out, err := p.callHook(ctx, domain.HookSearchAfter, payload)
	if err != nil {
		return domain.HookResult{}, err
	}
	res := domain.HookResult{Token: token, Data: results}
	if token == domain.ModifyData && out != nil {
		var modified []domain.SearchResult
		if jsonErr := json.Unmarshal(out, &modified); jsonErr == nil {
			res.Data = modified
		}
	}
	return res, nil
}

// OnLLMBefore implements domain.Plugin.
func (p *WASMPlugin) OnLLMBefore(ctx context.Context, prompt string, lc domain.LLMContext) (domain.HookResult, error) {
	payload := struct {
		Prompt  string           `json:"prompt"`
		Context domain.LLMContext `json:"context"`
	}{Prompt: prompt, Context: lc}

	token, out, err := p.callHook(ctx, domain.HookLLMBefore, payload)
	if err != nil {
		return domain.HookResult{}, err
	}
	res := domain.HookResult{Token: token, Data: prompt}
	if token == domain.ModifyData && out != nil {
		var modified string
		if jsonErr := json.Unmarshal(out, &modified); jsonErr == nil {
			res.Data = modified
		}
	}
	return res, nil
}

// OnLLMAfter implements domain.Plugin.
func (p *WASMPlugin) OnLLMAfter(ctx context.Context, prompt, response string, lc domain.LLMContext) (domain.HookResult, error) {
	payload := struct {
		Prompt   string            `json:"prompt"`
		Response string            `json:"response"`
		Context  domain.LLMContext `json:"context"`
	}{Prompt: prompt, Response: response, Context: lc}

	token, out, err := p.callHook(ctx, domain.HookLLMAfter, payload)
	if err != nil {
		return domain.HookResult{}, err
	}
	res := domain.HookResult{Token: token, Data: response}
	if token == domain.ModifyData && out != nil {
		var modified string
		if jsonErr := json.Unmarshal(out, &modified); jsonErr == nil {
			res.Data = modified
		}
	}
	return res, nil
}

// OnDaemonTick implements domain.Plugin.
func (p *WASMPlugin) OnDaemonTick(ctx context.Context, tc domain.TickContext) (domain.HookResult, error) {
	token, _, err := p.callHook(ctx, domain.HookDaemonTick, tc)
	if err != nil {
		return domain.HookResult{}, err
	}
	return domain.HookResult{Token: token}, nil
}

// callHook marshals payload to JSON, passes it to the named guest export
// if present, and returns the control token plus any emit_result payload.
// A missing export is not an error: it means the guest opted out of a
// hook it declared no interest in, and the dispatcher continues.
func (p *WASMPlugin) callHook(ctx context.Context, name string, payload any) (domain.ControlToken, []byte, error) {
	fn := p.module.ExportedFunction(name)
	if fn == nil {
		return domain.Continue, nil, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return domain.Continue, nil, domain.NewError("wasm."+name, domain.KindExternal, "marshal payload: "+err.Error())
	}

	ptr, size, err := WriteBytes(p.module, data)
	if err != nil {
		return domain.Continue, nil, err
	}
	defer FreeBytes(p.module, ptr, size)

	p.hostEnv.result = nil

	execCtx, cancel := context.WithTimeout(ctx, p.sandbox.ExecTimeout())
	defer cancel()

	results, err := fn.Call(execCtx, uint64(ptr), uint64(size))
	if err != nil {
		if execCtx.Err() != nil {
			return domain.Continue, nil, domain.NewError("wasm."+name, domain.KindTimeout, "guest call timed out")
		}
		return domain.Continue, nil, domain.NewError("wasm."+name, domain.KindExternal, err.Error())
	}

	token := domain.Continue
	if len(results) > 0 {
		token = domain.ControlToken(int32(results[0]))
	}
	return token, p.hostEnv.result, nil
}
