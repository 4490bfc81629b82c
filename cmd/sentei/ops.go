package main

import (
	"context"
	"fmt"

	"github.com/agrahamlincoln/sentei/internal/config"
	"github.com/agrahamlincoln/sentei/internal/protect"
	"github.com/agrahamlincoln/sentei/pkg/git"
)

// branchOp runs a single git operation for a command, honouring --dry-run.
// describe names the operation for output and errors.
func branchOp(ctx context.Context, globals *CLI, command string, describe func(config.Config) string, op func(context.Context, *git.Repo, config.Config) error) error {
	e, err := globals.setup(command)
	if err != nil {
		return err
	}
	defer e.Close()

	repo, err := globals.openRepo()
	if err != nil {
		return err
	}
	return runOp(ctx, repo, e.cfg, globals.DryRun, describe(e.cfg), op)
}

func runOp(ctx context.Context, repo *git.Repo, cfg config.Config, dryRun bool, describe string, op func(context.Context, *git.Repo, config.Config) error) error {
	if dryRun {
		fmt.Printf("would %s\n", describe)
		return nil
	}
	if err := op(ctx, repo, cfg); err != nil {
		return fmt.Errorf("%s: %w", describe, err)
	}
	fmt.Println(green.Sprint(describe))
	return nil
}

// CreateCmd creates a branch.
type CreateCmd struct {
	Name       string `arg:"" help:"Name of the new branch."`
	StartPoint string `arg:"" optional:"" help:"Commit or branch to start from (default HEAD)."`
	Checkout   bool   `short:"c" help:"Switch to the new branch."`
}

// Run executes the create command.
func (c *CreateCmd) Run(ctx context.Context, globals *CLI) error {
	describe := "create " + c.Name
	if c.StartPoint != "" {
		describe += " from " + c.StartPoint
	}
	return branchOp(ctx, globals, "create", fixed(describe), c.run)
}

func (c *CreateCmd) run(ctx context.Context, repo *git.Repo, _ config.Config) error {
	if repo.BranchExists(ctx, c.Name) {
		return fmt.Errorf("branch %s already exists", c.Name)
	}
	if err := repo.CreateBranch(ctx, c.Name, c.StartPoint); err != nil {
		return err
	}
	if c.Checkout {
		return repo.Checkout(ctx, c.Name)
	}
	return nil
}

// RenameCmd renames a local branch. Protected branches cannot be renamed.
type RenameCmd struct {
	Old string `arg:"" help:"Current branch name."`
	New string `arg:"" help:"New branch name."`
}

// Run executes the rename command.
func (c *RenameCmd) Run(ctx context.Context, globals *CLI) error {
	return branchOp(ctx, globals, "rename", fixed(fmt.Sprintf("rename %s to %s", c.Old, c.New)), c.run)
}

func (c *RenameCmd) run(ctx context.Context, repo *git.Repo, cfg config.Config) error {
	if protect.IsProtected(c.Old, cfg.ProtectedBranches) {
		return fmt.Errorf("%s is protected", c.Old)
	}
	return repo.RenameBranch(ctx, c.Old, c.New)
}

// CheckoutCmd switches branches.
type CheckoutCmd struct {
	Name string `arg:"" help:"Branch to switch to."`
}

// Run executes the checkout command.
func (c *CheckoutCmd) Run(ctx context.Context, globals *CLI) error {
	return branchOp(ctx, globals, "checkout", fixed("checkout "+c.Name), func(ctx context.Context, repo *git.Repo, _ config.Config) error {
		return repo.Checkout(ctx, c.Name)
	})
}

// MergeCmd merges a branch into the current branch.
type MergeCmd struct {
	Name string `arg:"" help:"Branch to merge into the current branch."`
}

// Run executes the merge command.
func (c *MergeCmd) Run(ctx context.Context, globals *CLI) error {
	return branchOp(ctx, globals, "merge", fixed("merge "+c.Name), func(ctx context.Context, repo *git.Repo, _ config.Config) error {
		return repo.Merge(ctx, c.Name)
	})
}

// FetchCmd fetches with --prune so deleted upstreams show as gone.
type FetchCmd struct {
	Remote string `arg:"" optional:"" help:"Remote to fetch (default: the configured remote)."`
}

// Run executes the fetch command.
func (c *FetchCmd) Run(ctx context.Context, globals *CLI) error {
	return branchOp(ctx, globals, "fetch", func(cfg config.Config) string {
		return "fetch --prune " + c.remote(cfg)
	}, func(ctx context.Context, repo *git.Repo, cfg config.Config) error {
		return repo.FetchPrune(ctx, c.remote(cfg))
	})
}

func (c *FetchCmd) remote(cfg config.Config) string {
	if c.Remote != "" {
		return c.Remote
	}
	return cfg.Remote
}

// fixed returns a describe func for a description that does not depend on
// configuration.
func fixed(s string) func(config.Config) string {
	return func(config.Config) string { return s }
}
