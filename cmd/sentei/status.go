package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/agrahamlincoln/sentei/internal/branches"
	"github.com/agrahamlincoln/sentei/internal/refresh"
)

// StatusCmd shows the classified branches of the repository.
type StatusCmd struct {
	Local     bool          `help:"Show only local branches." xor:"kind"`
	Remote    bool          `help:"Show only remote branches." xor:"kind"`
	Watch     time.Duration `help:"Refresh every interval until interrupted (e.g. 5s)."`
	Base      string        `help:"Base branch for merge detection (overrides base_branch)."`
	StaleDays int           `name:"stale-days" help:"Days before a branch is considered stale (overrides stale_days)." default:"-1"`
}

// Run executes the status command.
func (c *StatusCmd) Run(ctx context.Context, globals *CLI) error {
	e, err := globals.setup("status")
	if err != nil {
		return err
	}
	defer e.Close()

	repo, err := globals.openRepo()
	if err != nil {
		return err
	}
	loader := branches.NewLoader(repo, loaderOptions(e.cfg, c.Base, c.StaleDays), prChecker(e.cfg))
	view := statusView{
		Local:  !c.Remote,
		Remote: !c.Local,
		Badges: e.cfg.ShowStatusBadges,
	}

	if c.Watch <= 0 {
		start := time.Now()
		st, err := loader.State(ctx)
		if err != nil {
			return fmt.Errorf("loading branches: %w", err)
		}
		_ = e.ml.LogPerf(1, len(st.Local)+len(st.Remote), time.Since(start))
		view.Now = time.Now()
		renderStatus(os.Stdout, st, view)
		return nil
	}
	return c.watch(ctx, loader, view)
}

// watch re-renders on every tick. A refresh may outlast the interval, so
// results are applied through a Sequencer and older ones are dropped.
func (c *StatusCmd) watch(ctx context.Context, loader *branches.Loader, view statusView) error {
	var seq refresh.Sequencer
	var wg sync.WaitGroup
	defer wg.Wait()

	refreshNow := func() {
		tok := seq.Begin()
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := loader.State(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("refresh failed", "error", err)
				}
				return
			}
			applied := seq.Apply(tok, func() {
				view.Now = time.Now()
				fmt.Print("\033[H\033[2J")
				renderStatus(os.Stdout, st, view)
				fmt.Printf("\n%s\n", dim.Sprintf("Refreshing every %s. Press Ctrl-C to stop.", c.Watch))
			})
			if !applied {
				slog.Debug("discarded out-of-order refresh", "token", tok, "latest", seq.Latest())
			}
		}()
	}

	ticker := time.NewTicker(c.Watch)
	defer ticker.Stop()
	refreshNow()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refreshNow()
		}
	}
}
