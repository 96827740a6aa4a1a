package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cratedex/cratedex/internal/config"
	"github.com/cratedex/cratedex/internal/docgen"
	"github.com/cratedex/cratedex/internal/manifest"
	"github.com/cratedex/cratedex/internal/mcp"
	"github.com/cratedex/cratedex/internal/query"
	"github.com/cratedex/cratedex/internal/store"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var workspaceFlag string

var rootCmd = &cobra.Command{
	Use:     "cratedex",
	Short:   "Rust dependency documentation MCP server",
	Version: version,
	Run:     runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "", "Cargo workspace root (default: current directory)")

	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(moduleCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}

// runServe is the default command: serve MCP over stdio. Stdout carries
// the protocol stream, so logs go to a file.
func runServe(cmd *cobra.Command, args []string) {
	logFile, err := openLogFile()
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx)
	if err != nil {
		slog.Error("startup failed", "error", err)
		log.Fatalf("startup failed: %v", err)
	}

	slog.Info("serving MCP on stdio", "version", version)
	errCh := make(chan error, 1)
	go func() {
		errCh <- mcp.NewServer(engine, version).Run()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down on signal")
	case err := <-errCh:
		if err != nil {
			slog.Error("server exited", "error", err)
			os.Exit(1)
		}
	}
}

// newEngine assembles the query stack: workspace manifest, crate store,
// and doc generator. ctx becomes the store's build context, so pending
// builds die with the process.
func newEngine(ctx context.Context) (*query.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if workspaceFlag != "" {
		cfg.Workspace = workspaceFlag
	}

	m, err := manifest.Load(ctx, cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("loading workspace manifest: %w", err)
	}

	s := store.New(ctx, config.ByteCacheDir(), cfg.Cache.MaxResidentCrates, cfg.Cache.MaxConcurrentBuilds)
	gen := docgen.New(cfg.Docgen.Toolchain, m.Root, m.TargetDir)
	if !gen.HasToolchain(ctx) {
		slog.Warn("cargo toolchain not installed; documentation generation will fail",
			"toolchain", cfg.Docgen.Toolchain)
	}
	return query.New(m, s, gen, cfg.Search.Limit)
}

// cliSetup prepares an engine for one-shot CLI subcommands: logs go to
// stderr at warn level so command output stays clean.
func cliSetup(ctx context.Context) (*query.Engine, error) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
	return newEngine(ctx)
}

func openLogFile() (io.WriteCloser, error) {
	path := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
