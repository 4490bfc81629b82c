// Package main provides the sentei CLI tool for inspecting and pruning git
// branches.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/agrahamlincoln/sentei/internal/branches"
	"github.com/agrahamlincoln/sentei/internal/config"
	"github.com/agrahamlincoln/sentei/internal/github"
	"github.com/agrahamlincoln/sentei/internal/merge"
	"github.com/agrahamlincoln/sentei/internal/metrics"
	"github.com/agrahamlincoln/sentei/pkg/git"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI defines the top-level command structure for sentei.
type CLI struct {
	DryRun  bool   `name:"dry-run" short:"n" help:"Show what would be done without making changes."`
	Verbose bool   `name:"verbose" short:"v" help:"Verbose output."`
	Repo    string `name:"repo" short:"C" help:"Repository to operate on." default:"." type:"path"`

	Status   StatusCmd   `cmd:"" default:"withargs" help:"Show local and remote branches with their cleanup status."`
	Clean    CleanCmd    `cmd:"" help:"Delete merged, stale or gone branches."`
	Delete   DeleteCmd   `cmd:"" help:"Delete hand-picked branches."`
	Create   CreateCmd   `cmd:"" help:"Create a branch."`
	Rename   RenameCmd   `cmd:"" help:"Rename a local branch."`
	Checkout CheckoutCmd `cmd:"" help:"Switch to a branch."`
	Merge    MergeCmd    `cmd:"" help:"Merge a branch into the current branch."`
	Fetch    FetchCmd    `cmd:"" help:"Fetch from the remote and prune deleted branches."`
	Audit    AuditCmd    `cmd:"" help:"Report cleanup candidates across all repositories in the projects directory."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// env carries what every command needs: configuration and the metrics
// logger. It is built once per invocation.
type env struct {
	cfg config.Config
	ml  *metrics.Logger
}

// setup records the command in the metrics log and loads configuration.
// The returned env must be closed.
func (c *CLI) setup(command string, flags ...string) (*env, error) {
	// Metrics are best-effort local telemetry. Logging errors are discarded
	// because metrics must never interrupt the user's workflow.
	ml := metrics.NewOrNil()
	_ = ml.LogCommand(command, c.flags(flags...))

	cfg, err := config.Load()
	if err != nil {
		_ = ml.Close()
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &env{cfg: cfg, ml: ml}, nil
}

func (e *env) Close() {
	_ = e.ml.Close()
}

// flags lists the global flags in effect followed by extra.
func (c *CLI) flags(extra ...string) []string {
	var flags []string
	if c.DryRun {
		flags = append(flags, "--dry-run")
	}
	if c.Verbose {
		flags = append(flags, "--verbose")
	}
	return append(flags, extra...)
}

// openRepo resolves --repo to a git working copy.
func (c *CLI) openRepo() (*git.Repo, error) {
	path, err := filepath.Abs(config.ExpandHome(c.Repo))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", c.Repo, err)
	}
	if !git.IsRepo(path) {
		return nil, fmt.Errorf("%s is not a git repository", path)
	}
	slog.Debug("using repository", "repo", path)
	return git.Open(path), nil
}

// loaderOptions maps configuration onto branch state options. base and
// staleDays are command-line overrides; empty and negative mean unset.
func loaderOptions(cfg config.Config, base string, staleDays int) branches.Options {
	opts := branches.Options{
		BaseBranch: cfg.BaseBranch,
		Remote:     cfg.Remote,
		Protected:  cfg.ProtectedBranches,
		StaleDays:  cfg.StaleDays,
		FetchPrune: cfg.AutoFetchPrune,
	}
	if base != "" {
		opts.BaseBranch = base
	}
	if staleDays >= 0 {
		opts.StaleDays = staleDays
	}
	return opts
}

// prChecker returns the squash-merge detector, or nil when it is disabled.
func prChecker(cfg config.Config) branches.PRMergeChecker {
	if !cfg.DetectSquashMerges {
		return nil
	}
	return merge.NewDetector(github.NewClient(cfg.GithubToken))
}

// enableVerboseLogging switches slog to debug-level text output on stderr.
func enableVerboseLogging() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// VersionCmd shows version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("sentei %s (commit: %s, built: %s)\n", version, commit, date)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("sentei"),
		kong.Description(`sentei (剪定) - "pruning"

Inspect the branches of a git repository and clean up the ones that are
merged, stale, or whose upstream is gone. Protected branches are never
deleted.`),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)},
	)

	if cli.Verbose {
		enableVerboseLogging()
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run(&cli)
	stop()
	kctx.FatalIfErrorf(err)
}
