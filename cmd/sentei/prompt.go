package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/agrahamlincoln/sentei/internal/cleanup"
	"github.com/agrahamlincoln/sentei/internal/metrics"
)

// huhPrompter asks cleanup questions on the terminal and records each
// answer in the metrics log.
type huhPrompter struct {
	ml *metrics.Logger
}

// Confirm implements cleanup.Prompter.
func (p huhPrompter) Confirm(q cleanup.Question, names []string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(questionTitle(q, len(names))).
				Description(listNames(names, 15)).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	_ = p.ml.LogDecision(q.String(), len(names), ok)
	return ok, nil
}

func questionTitle(q cleanup.Question, n int) string {
	switch q {
	case cleanup.AskForce:
		return fmt.Sprintf("%d branch(es) are not fully merged. Force delete?", n)
	case cleanup.AskUntrackedRemote:
		return fmt.Sprintf("Also delete %d remote branch(es) with the same name?", n)
	default:
		return fmt.Sprintf("Delete %d branch(es)?", n)
	}
}

// listNames renders names one per line, eliding after limit entries.
func listNames(names []string, limit int) string {
	if len(names) <= limit {
		return strings.Join(names, "\n")
	}
	return strings.Join(names[:limit], "\n") + fmt.Sprintf("\n... and %d more", len(names)-limit)
}

// selectBranches lets the user pick from options. All are preselected
// when preselect is set.
func selectBranches(title string, options []string, preselect bool) ([]string, error) {
	opts := make([]huh.Option[string], len(options))
	for i, name := range options {
		opts[i] = huh.NewOption(name, name).Selected(preselect)
	}

	var selected []string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Options(opts...).
				Value(&selected),
		),
	).Run()
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return selected, nil
}
