package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jotx/internal/domain"
)

// writeScript writes an executable shell script that echoes the given
// JSON to stdout, ignoring its stdin payload.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestSubprocessPluginContinuePassesDataThrough(t *testing.T) {
	script := writeScript(t, `echo '{"token":"continue"}'`)
	p := NewSubprocessPlugin(domain.PluginManifest{Name: "echoer", Hooks: []string{domain.HookCommandCaptured}}, script)

	cc := domain.CommandContext{Content: "ls -la"}
	res, err := p.OnCommandCaptured(context.Background(), cc)
	require.NoError(t, err)
	assert.Equal(t, domain.Continue, res.Token)
	assert.Equal(t, cc, res.Data)
}

func TestSubprocessPluginModifyDataReplacesContent(t *testing.T) {
	script := writeScript(t, `echo '{"token":"modify","data":{"Content":"REDACTED"}}'`)
	p := NewSubprocessPlugin(domain.PluginManifest{Name: "redactor", Hooks: []string{domain.HookCommandCaptured}}, script)

	res, err := p.OnCommandCaptured(context.Background(), domain.CommandContext{Content: "export SECRET=1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModifyData, res.Token)
	assert.Equal(t, "REDACTED", res.Data.(domain.CommandContext).Content)
}

func TestSubprocessPluginSkipToken(t *testing.T) {
	script := writeScript(t, `echo '{"token":"skip"}'`)
	p := NewSubprocessPlugin(domain.PluginManifest{Name: "blocker", Hooks: []string{domain.HookCommandCaptured}}, script)

	res, err := p.OnCommandCaptured(context.Background(), domain.CommandContext{Content: "rm -rf /"})
	require.NoError(t, err)
	assert.Equal(t, domain.Skip, res.Token)
}

func TestSubprocessPluginNonzeroExitDegradesToContinue(t *testing.T) {
	script := writeScript(t, `exit 1`)
	p := NewSubprocessPlugin(domain.PluginManifest{Name: "broken", Hooks: []string{domain.HookCommandCaptured}}, script)

	res, err := p.OnCommandCaptured(context.Background(), domain.CommandContext{Content: "ls"})
	require.NoError(t, err)
	assert.Equal(t, domain.Continue, res.Token)
}

func TestSubprocessPluginMalformedStdoutDegradesToContinue(t *testing.T) {
	script := writeScript(t, `echo 'not json'`)
	p := NewSubprocessPlugin(domain.PluginManifest{Name: "garbled", Hooks: []string{domain.HookCommandCaptured}}, script)

	res, err := p.OnCommandCaptured(context.Background(), domain.CommandContext{Content: "ls"})
	require.NoError(t, err)
	assert.Equal(t, domain.Continue, res.Token)
}

func TestSubprocessPluginMissingBinaryDegradesToContinue(t *testing.T) {
	p := NewSubprocessPlugin(domain.PluginManifest{Name: "missing", Hooks: []string{domain.HookCommandCaptured}}, "/nonexistent/path/to/plugin")

	res, err := p.OnCommandCaptured(context.Background(), domain.CommandContext{Content: "ls"})
	require.NoError(t, err)
	assert.Equal(t, domain.Continue, res.Token)
}
