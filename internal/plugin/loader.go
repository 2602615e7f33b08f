package plugin

import (
	"context"
	"log/slog"

	"jotx/internal/domain"
	"jotx/internal/plugin/wasm"
)

// LoadOptions configures plugin discovery and instantiation.
type LoadOptions struct {
	Dirs      []string // plugin directories, one subdirectory per plugin
	Allowed   []string // permission allow-list; empty means unrestricted
	Denied    []string // permission deny-list, takes precedence over Allowed
	Runtime   *wasm.Runtime
	ConfigFor func(manifest domain.PluginManifest) []byte // per-plugin get_config payload
}

// Load scans Dirs for plugin.yaml manifests, validates their declared
// permissions, instantiates a subprocess or WASM wrapper per manifest's
// Types, and registers each into reg. A manifest that fails permission
// validation or instantiation is logged and skipped, never aborting the
// rest of the load.
func Load(ctx context.Context, reg *Registry, logger *slog.Logger, opts LoadOptions) error {
	manifests, err := ScanDirectories(opts.Dirs)
	if err != nil {
		return err
	}

	for _, m := range manifests {
		if err := ValidatePermissions(m, opts.Allowed, opts.Denied); err != nil {
			logger.Warn("plugin permission check failed, skipping", "plugin", m.Name, "error", err)
			continue
		}

		p, err := instantiate(ctx, m, logger, opts)
		if err != nil {
			logger.Warn("plugin instantiation failed, skipping", "plugin", m.Name, "error", err)
			continue
		}
		if p == nil {
			continue
		}

		if err := reg.Register(p); err != nil {
			logger.Warn("plugin registration failed, skipping", "plugin", m.Name, "error", err)
		}
	}

	return nil
}

func instantiate(ctx context.Context, m domain.PluginManifest, logger *slog.Logger, opts LoadOptions) (domain.Plugin, error) {
	if m.WASMConfig != nil && m.WASMConfig.Binary != "" {
		if opts.Runtime == nil {
			return nil, domain.NewError("plugin.instantiate", domain.KindInvalidInput, m.Name+" declares a wasm binary but no runtime is configured")
		}
		sandbox := wasm.NewSandbox(*m.WASMConfig, logger)
		var cfg []byte
		if opts.ConfigFor != nil {
			cfg = opts.ConfigFor(m)
		}
		return wasm.LoadPlugin(ctx, opts.Runtime, m.WASMConfig.Binary, m, sandbox, cfg)
	}

	if m.Path != "" {
		return NewSubprocessPlugin(m, m.Path), nil
	}

	return nil, domain.NewError("plugin.instantiate", domain.KindInvalidInput, m.Name+" declares neither a wasm binary nor a subprocess path")
}
