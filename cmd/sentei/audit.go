package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/agrahamlincoln/sentei/internal/audit"
	"github.com/agrahamlincoln/sentei/internal/config"
)

// AuditCmd reports cleanup candidates across the projects directory.
type AuditCmd struct {
	ProjectsDir string `name:"projects-dir" short:"p" help:"Directory to scan (default: projects_dir from config)."`
	Workers     int    `help:"Number of repositories inspected concurrently (default: workers from config)."`
	All         bool   `short:"a" help:"Also list repositories with nothing to clean up."`
	StaleDays   int    `name:"stale-days" help:"Days without commits before a branch is stale (default: stale_days from config)." default:"-1"`
}

// Run executes the audit command.
func (c *AuditCmd) Run(ctx context.Context, globals *CLI) error {
	var flags []string
	if c.All {
		flags = append(flags, "--all")
	}
	e, err := globals.setup("audit", flags...)
	if err != nil {
		return err
	}
	defer e.Close()

	root := c.root(e.cfg)
	opts := audit.Options{
		ExcludePatterns: e.cfg.ExcludePatterns,
		Workers:         c.workers(e.cfg),
		Branches:        loaderOptions(e.cfg, "", c.StaleDays),
		PRs:             prChecker(e.cfg),
	}

	fmt.Printf("Auditing %s...\n", root)
	reports, sum, err := audit.Run(ctx, root, opts, func(completed, total int, r audit.RepoReport) {
		fmt.Fprintf(os.Stderr, "\r  [%d/%d] %s\033[K", completed, total, filepath.Base(r.Path))
	})
	if len(reports) > 0 {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	if err != nil {
		return err
	}

	branchCount := 0
	for _, r := range reports {
		branchCount += r.Branches
	}
	_ = e.ml.LogPerf(sum.Repos, branchCount, sum.Duration)

	renderAudit(os.Stdout, root, reports, sum, c.All)
	return nil
}

func (c *AuditCmd) root(cfg config.Config) string {
	if c.ProjectsDir != "" {
		return config.ExpandHome(c.ProjectsDir)
	}
	return cfg.ProjectsDir
}

func (c *AuditCmd) workers(cfg config.Config) int {
	if c.Workers > 0 {
		return c.Workers
	}
	return cfg.Workers
}

// renderAudit prints one line per repository with cleanup candidates (every
// repository when all is set) followed by the totals.
func renderAudit(w io.Writer, root string, reports []audit.RepoReport, sum audit.Summary, all bool) {
	if sum.Repos == 0 {
		fmt.Fprintln(w, "No repositories found.")
		return
	}

	fmt.Fprintln(w)
	shown := 0
	for _, r := range reports {
		if r.Clean() && !all {
			continue
		}
		shown++
		name := relPath(root, r.Path)
		if r.Err != nil {
			fmt.Fprintf(w, "  %s  %s\n", bold.Sprint(name), red.Sprint("error: ", firstLine(r.Err.Error())))
			continue
		}
		fmt.Fprintf(w, "  %s  %s  %s %s %s\n",
			bold.Sprint(name),
			dim.Sprintf("(%s, %d branches)", r.Base, r.Branches),
			countLabel(r.Merged, "merged", green),
			countLabel(r.Stale, "stale", yellow),
			countLabel(r.Gone, "gone", red),
		)
	}
	if shown == 0 {
		fmt.Fprintln(w, green.Sprint("  Nothing to clean up."))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold.Sprintf("%d repositories: %d merged, %d stale, %d gone", sum.Repos, sum.Merged, sum.Stale, sum.Gone))
	if sum.Failed > 0 {
		fmt.Fprintln(w, red.Sprintf("%d repositories could not be inspected.", sum.Failed))
	}
	fmt.Fprintln(w, dim.Sprintf("Scanned in %s.", sum.Duration.Round(time.Millisecond)))
}

// countLabel renders "3 merged" in c, or dimmed when n is zero.
func countLabel(n int, label string, c *color.Color) string {
	s := strconv.Itoa(n) + " " + label
	if n == 0 {
		return dim.Sprint(s)
	}
	return c.Sprint(s)
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
