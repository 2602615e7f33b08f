// Command jotxd is the background daemon: it captures shell commands and
// clipboard contents, writes them to the local store, and runs periodic
// maintenance. The rest of the jotx CLI surface (ask, search, status,
// settings, …) is represented in this repository only as the domain ports
// those commands would call; jotxd wires just enough of main to exercise
// the daemon itself and the `capture` hook target shell integrations call.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"jotx/internal/adapter/embedding"
	"jotx/internal/capture"
	"jotx/internal/infra/config"
	"jotx/internal/infra/logger"
	"jotx/internal/maintenance"
	"jotx/internal/pipeline"
	"jotx/internal/plugin"
	"jotx/internal/plugin/wasm"
	"jotx/internal/store/sqlite"
	"jotx/internal/supervisor"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: jotxd <run|internal-daemon|capture> [flags]")
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run", "internal-daemon":
		err = runDaemon()
	case "capture":
		err = runCapture(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "jotxd: unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "jotxd: %v\n", err)
		os.Exit(1)
	}
}

// runDaemon starts the full supervisor: capture workers, write pipeline,
// plugin hub, and the daemon-tick/maintenance schedule. It blocks until
// SIGINT/SIGTERM, then drains in-flight writes before returning.
func runDaemon() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closeLog()

	store, err := sqlite.Open(databasePath(cfg), log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	embedder := embedding.New(embedding.NewCachedEmbedder(
		embedding.NewOllamaProvider(
			embedding.WithOllamaBaseURL(cfg.LLM.APIBase),
		), 1000))

	reg := plugin.NewRegistry(log)
	pluginsDir, err := defaultPluginsDir()
	if err != nil {
		return err
	}
	runtime, err := wasm.NewRuntime(ctx, wasm.DefaultRuntimeConfig(), log)
	if err != nil {
		return fmt.Errorf("wasm runtime: %w", err)
	}
	if err := plugin.Load(ctx, reg, log, plugin.LoadOptions{
		Dirs:    []string{pluginsDir},
		Runtime: runtime,
	}); err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}

	writer := pipeline.New(store, embedder, log)
	settings := capture.NewSettingsCache(store)
	if err := settings.Refresh(ctx); err != nil {
		log.Warn("initial settings refresh failed, using defaults", "error", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	clip := capture.NewClipboardPoller(writer, settings, nil, log)
	shell := capture.NewShellIntake(writer, reg, settings, nil, log, home)

	sidecarPath, err := maintenance.DefaultSidecarPath()
	if err != nil {
		return err
	}
	interval := time.Duration(cfg.Storage.MaintenanceIntervalDays) * 24 * time.Hour
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	runner := maintenance.New(store, log, sidecarPath, interval)

	sup, err := supervisor.New(supervisor.Dependencies{
		Writer:      writer,
		Clipboard:   clip,
		Shell:       shell,
		Settings:    settings,
		Plugins:     reg,
		Maintenance: runner,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	return sup.Run(ctx)
}

// runCapture implements the `capture --cmd <…>` hook target shell
// integrations invoke for each command. It runs a one-shot pipeline long
// enough to enqueue and flush the single entry, rather than requiring the
// full daemon to be reachable over IPC.
func runCapture(args []string) error {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	cmdFlag := fs.String("cmd", "", "captured command text")
	pwdFlag := fs.String("pwd", "", "working directory the command ran in")
	_ = fs.String("user", "", "unused: derived from the OS user at capture time")
	_ = fs.String("host", "", "unused: derived from the OS hostname at capture time")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cmdFlag == "" {
		return fmt.Errorf("capture: --cmd is required")
	}

	cfgPath, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closeLog()

	store, err := sqlite.Open(databasePath(cfg), log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	embedder := embedding.New(embedding.NewCachedEmbedder(
		embedding.NewOllamaProvider(embedding.WithOllamaBaseURL(cfg.LLM.APIBase)), 1))

	reg := plugin.NewRegistry(log)
	settings := capture.NewSettingsCache(store)
	ctx := context.Background()
	if err := settings.Refresh(ctx); err != nil {
		log.Warn("settings refresh failed, using defaults", "error", err)
	}

	writer := pipeline.New(store, embedder, log)
	workerCtx, cancel := context.WithCancel(ctx)
	go writer.Run(workerCtx)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	shell := capture.NewShellIntake(writer, reg, settings, nil, log, home)
	shell.PushCommand(ctx, *cmdFlag, *pwdFlag)

	cancel()
	writer.Wait()
	return nil
}

func databasePath(cfg config.Config) string {
	if cfg.Storage.DatabasePath != "" {
		return cfg.Storage.DatabasePath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "jotx.db"
	}
	return filepath.Join(home, ".jotx", "jotx.db")
}

func defaultPluginsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".jotx", "plugins")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create plugins directory: %w", err)
	}
	return dir, nil
}

