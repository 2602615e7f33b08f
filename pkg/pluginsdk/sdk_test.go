package pluginsdk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jotx/internal/domain"
)

func TestBasePlugin_NameAndHooks(t *testing.T) {
	bp := NewBasePlugin("test-plugin", []string{HookCommandCaptured, HookDaemonTick})
	assert.Equal(t, "test-plugin", bp.Name())
	assert.Equal(t, []string{HookCommandCaptured, HookDaemonTick}, bp.Hooks())
}

func TestBasePlugin_OnCommandCaptured(t *testing.T) {
	bp := NewBasePlugin("test", nil)
	cc := CommandContext{Content: "ls -la"}
	res, err := bp.OnCommandCaptured(context.Background(), cc)
	require.NoError(t, err)
	assert.Equal(t, Continue, res.Token)
	assert.Equal(t, cc, res.Data)
}

func TestBasePlugin_OnSearchBefore(t *testing.T) {
	bp := NewBasePlugin("test", nil)
	res, err := bp.OnSearchBefore(context.Background(), "docker logs")
	require.NoError(t, err)
	assert.Equal(t, Continue, res.Token)
	assert.Equal(t, "docker logs", res.Data)
}

func TestBasePlugin_OnSearchAfter(t *testing.T) {
	bp := NewBasePlugin("test", nil)
	results := []SearchResult{{Entry: domain.Entry{Content: "git status"}}}
	res, err := bp.OnSearchAfter(context.Background(), "git", results)
	require.NoError(t, err)
	assert.Equal(t, Continue, res.Token)
	assert.Equal(t, results, res.Data)
}

func TestBasePlugin_OnLLMBefore(t *testing.T) {
	bp := NewBasePlugin("test", nil)
	res, err := bp.OnLLMBefore(context.Background(), "summarize this", LLMContext{Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, Continue, res.Token)
	assert.Equal(t, "summarize this", res.Data)
}

func TestBasePlugin_OnLLMAfter(t *testing.T) {
	bp := NewBasePlugin("test", nil)
	res, err := bp.OnLLMAfter(context.Background(), "prompt", "response", LLMContext{})
	require.NoError(t, err)
	assert.Equal(t, Continue, res.Token)
	assert.Equal(t, "response", res.Data)
}

func TestBasePlugin_OnDaemonTick(t *testing.T) {
	bp := NewBasePlugin("test", nil)
	res, err := bp.OnDaemonTick(context.Background(), TickContext{Timestamp: 123})
	require.NoError(t, err)
	assert.Equal(t, Continue, res.Token)
}

// customPlugin embeds BasePlugin and overrides a single hook, the pattern
// plugin authors are expected to follow.
type customPlugin struct {
	BasePlugin
}

func (c customPlugin) OnCommandCaptured(_ context.Context, cc CommandContext) (HookResult, error) {
	cc.Content = "REDACTED"
	return HookResult{Token: ModifyData, Data: cc}, nil
}

func TestComposition_CustomPluginOverridesOneHook(t *testing.T) {
	p := customPlugin{BasePlugin: NewBasePlugin("custom", []string{HookCommandCaptured})}

	var _ Plugin = p

	res, err := p.OnCommandCaptured(context.Background(), CommandContext{Content: "secret"})
	require.NoError(t, err)
	assert.Equal(t, ModifyData, res.Token)
	assert.Equal(t, "REDACTED", res.Data.(CommandContext).Content)

	// Untouched hooks still fall through to BasePlugin's Continue default.
	tick, err := p.OnDaemonTick(context.Background(), TickContext{})
	require.NoError(t, err)
	assert.Equal(t, Continue, tick.Token)
}
