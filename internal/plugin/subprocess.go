package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"jotx/internal/domain"
)

// subprocessResponse is the JSON a subprocess plugin writes to stdout:
// a control token name plus an optional replacement payload.
type subprocessResponse struct {
	Token string          `json:"token"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func parseToken(s string) domain.ControlToken {
	switch s {
	case "stop":
		return domain.Stop
	case "modify":
		return domain.ModifyData
	case "skip":
		return domain.Skip
	default:
		return domain.Continue
	}
}

// SubprocessPlugin wraps an external executable as a domain.Plugin. Each
// hook invocation runs `binary <hook-name>` with the JSON-encoded hook
// payload on stdin, and expects a subprocessResponse JSON object on
// stdout. A nonzero exit or malformed stdout degrades to Continue rather
// than failing the dispatch chain, consistent with a plugin error never
// surfacing.
type SubprocessPlugin struct {
	manifest domain.PluginManifest
	binary   string
}

var _ domain.Plugin = (*SubprocessPlugin)(nil)

// NewSubprocessPlugin wraps the executable at binaryPath per manifest.
func NewSubprocessPlugin(manifest domain.PluginManifest, binaryPath string) *SubprocessPlugin {
	return &SubprocessPlugin{manifest: manifest, binary: binaryPath}
}

func (p *SubprocessPlugin) Name() string    { return p.manifest.Name }
func (p *SubprocessPlugin) Hooks() []string { return p.manifest.Hooks }

func (p *SubprocessPlugin) OnCommandCaptured(ctx context.Context, cc domain.CommandContext) (domain.HookResult, error) {
	res, err := p.invoke(ctx, domain.HookCommandCaptured, cc)
	if err != nil {
		return domain.HookResult{}, err
	}
	out := domain.HookResult{Token: res.Token, Data: cc}
	if res.Token == domain.ModifyData {
		var modified domain.CommandContext
		if json.Unmarshal(res.raw, &modified) == nil {
			out.Data = modified
		}
	}
	return out, nil
}

func (p *SubprocessPlugin) OnSearchBefore(ctx context.Context, query string) (domain.HookResult, error) {
	res, err := p.invoke(ctx, domain.HookSearchBefore, query)
	if err != nil {
		return domain.HookResult{}, err
	}
	out := domain.HookResult{Token: res.Token, Data: query}
	if res.Token == domain.ModifyData {
		var modified string
		if json.Unmarshal(res.raw, &modified) == nil {
			out.Data = modified
		}
	}
	return out, nil
}

func (p *SubprocessPlugin) OnSearchAfter(ctx context.Context, query string, results []domain.SearchResult) (domain.HookResult, error) {
	payload := struct {
		Query   string                `json:"query"`
		Results []domain.SearchResult `json:"results"`
	}{Query: query, Results: results}

	res, err := p.invoke(ctx, domain.HookSearchAfter, payload)
	if err != nil {
		return domain.HookResult{}, err
	}
	out := domain.HookResult{Token: res.Token, Data: results}
	if res.Token == domain.ModifyData {
		var modified []domain.SearchResult
		if json.Unmarshal(res.raw, &modified) == nil {
			out.Data = modified
		}
	}
	return out, nil
}

func (p *SubprocessPlugin) OnLLMBefore(ctx context.Context, prompt string, lc domain.LLMContext) (domain.HookResult, error) {
	payload := struct {
		Prompt  string            `json:"prompt"`
		Context domain.LLMContext `json:"context"`
	}{Prompt: prompt, Context: lc}

	res, err := p.invoke(ctx, domain.HookLLMBefore, payload)
	if err != nil {
		return domain.HookResult{}, err
	}
	out := domain.HookResult{Token: res.Token, Data: prompt}
	if res.Token == domain.ModifyData {
		var modified string
		if json.Unmarshal(res.raw, &modified) == nil {
			out.Data = modified
		}
	}
	return out, nil
}

func (p *SubprocessPlugin) OnLLMAfter(ctx context.Context, prompt, response string, lc domain.LLMContext) (domain.HookResult, error) {
	payload := struct {
		Prompt   string            `json:"prompt"`
		Response string            `json:"response"`
		Context  domain.LLMContext `json:"context"`
	}{Prompt: prompt, Response: response, Context: lc}

	res, err := p.invoke(ctx, domain.HookLLMAfter, payload)
	if err != nil {
		return domain.HookResult{}, err
	}
	out := domain.HookResult{Token: res.Token, Data: response}
	if res.Token == domain.ModifyData {
		var modified string
		if json.Unmarshal(res.raw, &modified) == nil {
			out.Data = modified
		}
	}
	return out, nil
}

func (p *SubprocessPlugin) OnDaemonTick(ctx context.Context, tc domain.TickContext) (domain.HookResult, error) {
	res, err := p.invoke(ctx, domain.HookDaemonTick, tc)
	if err != nil {
		return domain.HookResult{}, err
	}
	return domain.HookResult{Token: res.Token}, nil
}

type invokeResult struct {
	Token domain.ControlToken
	raw   json.RawMessage
}

// invoke runs the subprocess with argv[1]=hookName and the JSON-encoded
// payload on stdin. Any process-level failure (spawn error, nonzero
// exit, malformed stdout) degrades to Continue: a misbehaving external
// plugin must never block capture or search.
func (p *SubprocessPlugin) invoke(ctx context.Context, hook string, payload any) (invokeResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return invokeResult{Token: domain.Continue}, nil
	}

	cmd := exec.CommandContext(ctx, p.binary, hook)
	cmd.Stdin = bytes.NewReader(data)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return invokeResult{Token: domain.Continue}, nil
	}

	var resp subprocessResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return invokeResult{Token: domain.Continue}, nil
	}

	return invokeResult{Token: parseToken(resp.Token), raw: resp.Data}, nil
}
