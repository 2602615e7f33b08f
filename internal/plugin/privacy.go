package plugin

import (
	"context"
	"regexp"
	"strings"

	"jotx/internal/domain"
	"jotx/internal/infra/config"
)

// PrivacyFilter is the built-in plugin that skips capture of shell
// commands matching a configured pattern set, or run inside a configured
// excluded directory. It only declares interest in on_command_captured.
type PrivacyFilter struct {
	contains     []string
	startsWith   []string
	endsWith     []string
	regexes      []*regexp.Regexp
	excludedDirs []string
}

var _ domain.Plugin = (*PrivacyFilter)(nil)

// NewPrivacyFilter compiles a PrivacyFilter from the configured pattern
// set. Invalid regex patterns are dropped rather than failing startup.
func NewPrivacyFilter(cfg config.PrivacyConfig) *PrivacyFilter {
	pf := &PrivacyFilter{
		contains:     lowerAll(cfg.Contains),
		startsWith:   lowerAll(cfg.StartsWith),
		endsWith:     lowerAll(cfg.EndsWith),
		excludedDirs: cfg.ExcludedDirs,
	}
	for _, pattern := range cfg.Regex {
		if re, err := regexp.Compile(pattern); err == nil {
			pf.regexes = append(pf.regexes, re)
		}
	}
	return pf
}

func lowerAll(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, s := range patterns {
		out[i] = strings.ToLower(s)
	}
	return out
}

func (p *PrivacyFilter) Name() string { return "privacy-filter" }

func (p *PrivacyFilter) Hooks() []string { return []string{domain.HookCommandCaptured} }

// OnCommandCaptured returns Skip for a command matching any configured
// pattern, or captured from an excluded directory.
func (p *PrivacyFilter) OnCommandCaptured(_ context.Context, cc domain.CommandContext) (domain.HookResult, error) {
	if p.inExcludedDir(cc.WorkingDir) || p.matches(cc.Content) {
		return domain.HookResult{Token: domain.Skip}, nil
	}
	return domain.HookResult{Token: domain.Continue, Data: cc}, nil
}

func (p *PrivacyFilter) matches(content string) bool {
	lower := strings.ToLower(content)
	for _, s := range p.contains {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, s := range p.startsWith {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	for _, s := range p.endsWith {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	for _, re := range p.regexes {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func (p *PrivacyFilter) inExcludedDir(dir string) bool {
	if dir == "" {
		return false
	}
	for _, excluded := range p.excludedDirs {
		if strings.Contains(dir, excluded) {
			return true
		}
	}
	return false
}

// The remaining hooks are no-ops: this plugin only inspects captured
// commands.

func (p *PrivacyFilter) OnSearchBefore(_ context.Context, query string) (domain.HookResult, error) {
	return domain.HookResult{Token: domain.Continue, Data: query}, nil
}

func (p *PrivacyFilter) OnSearchAfter(_ context.Context, _ string, results []domain.SearchResult) (domain.HookResult, error) {
	return domain.HookResult{Token: domain.Continue, Data: results}, nil
}

func (p *PrivacyFilter) OnLLMBefore(_ context.Context, prompt string, _ domain.LLMContext) (domain.HookResult, error) {
	return domain.HookResult{Token: domain.Continue, Data: prompt}, nil
}

func (p *PrivacyFilter) OnLLMAfter(_ context.Context, _, response string, _ domain.LLMContext) (domain.HookResult, error) {
	return domain.HookResult{Token: domain.Continue, Data: response}, nil
}

func (p *PrivacyFilter) OnDaemonTick(_ context.Context, _ domain.TickContext) (domain.HookResult, error) {
	return domain.HookResult{Token: domain.Continue}, nil
}
