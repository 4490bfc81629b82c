package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/agrahamlincoln/sentei/internal/branches"
)

var (
	bold   = color.New(color.Bold)
	dim    = color.New(color.FgHiBlack)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// statusView selects what renderStatus prints.
type statusView struct {
	Local  bool
	Remote bool
	Badges bool
	Now    time.Time
}

// renderStatus prints the branch table of st to w.
func renderStatus(w io.Writer, st branches.State, v statusView) {
	head := st.Current
	if head == "" {
		head = "(detached HEAD)"
	}
	fmt.Fprintf(w, "%s %s  %s\n", bold.Sprint("On"), bold.Sprint(head), dim.Sprintf("base: %s", st.Base))

	if v.Local {
		fmt.Fprintf(w, "\n%s\n", bold.Sprintf("Local branches (%d)", len(st.Local)))
		renderRecords(w, st.Local, v)
	}
	if v.Remote {
		fmt.Fprintf(w, "\n%s\n", bold.Sprintf("Remote branches (%d)", len(st.Remote)))
		renderRecords(w, st.Remote, v)
	}

	if v.Local {
		var counts []string
		for _, reason := range []branches.Reason{branches.ReasonMerged, branches.ReasonStale, branches.ReasonGone} {
			if n := len(st.Candidates(reason)); n > 0 {
				counts = append(counts, fmt.Sprintf("%d %s", n, reason))
			}
		}
		if len(counts) > 0 {
			fmt.Fprintf(w, "\n%s %s\n", yellow.Sprint("Cleanup candidates:"), strings.Join(counts, ", "))
		}
	}
}

func renderRecords(w io.Writer, recs []branches.Record, v statusView) {
	if len(recs) == 0 {
		fmt.Fprintf(w, "  %s\n", dim.Sprint("none"))
		return
	}
	width := 0
	for _, r := range recs {
		width = max(width, len(r.Name))
	}
	for _, r := range recs {
		marker := " "
		if r.Current {
			marker = green.Sprint("*")
		}
		name := fmt.Sprintf("%-*s", width, r.Name)
		if r.Current {
			name = green.Sprint(name)
		}
		line := fmt.Sprintf("%s %s", marker, name)
		if t := trackingLabel(r); t != "" {
			line += "  " + cyan.Sprint(t)
		}
		if v.Badges {
			for _, b := range badges(r) {
				line += " " + badgeColor(b).Sprintf("[%s]", b)
			}
		}
		line += "  " + dim.Sprint(formatAge(r.LastCommit, v.Now))
		fmt.Fprintf(w, "  %s\n", line)
	}
}

// trackingLabel describes the upstream relation of a local branch, e.g.
// "origin/x +2/-1".
func trackingLabel(r branches.Record) string {
	if r.Upstream == "" {
		return ""
	}
	label := r.Upstream
	var counts []string
	if r.Ahead != nil {
		counts = append(counts, fmt.Sprintf("+%d", *r.Ahead))
	}
	if r.Behind != nil {
		counts = append(counts, fmt.Sprintf("-%d", *r.Behind))
	}
	if len(counts) > 0 {
		label += " " + strings.Join(counts, "/")
	}
	return label
}

// badges lists the status tags of a record in display order.
func badges(r branches.Record) []string {
	var out []string
	if r.Protected {
		out = append(out, "protected")
	}
	if r.Merged {
		if r.MergedByPR {
			out = append(out, "merged via PR")
		} else {
			out = append(out, "merged")
		}
	}
	if r.Gone {
		out = append(out, "gone")
	}
	if r.Stale {
		out = append(out, "stale")
	}
	return out
}

func badgeColor(b string) *color.Color {
	switch b {
	case "protected":
		return cyan
	case "gone":
		return red
	case "stale":
		return yellow
	default:
		return green
	}
}

func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "1 day ago"
	case days < 30:
		return fmt.Sprintf("%d days ago", days)
	case days < 365:
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := days / 365
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// printCandidates lists the branches a cleanup would touch.
func printCandidates(w io.Writer, st branches.State, reason branches.Reason, names []string, now time.Time) {
	fmt.Fprintf(w, "\n%s\n\n", bold.Sprintf("Found %d %s branch(es):", len(names), reason))
	for _, name := range names {
		rec, _ := st.Lookup(name)
		extra := formatAge(rec.LastCommit, now)
		if rec.MergedByPR {
			extra += ", merged via PR"
		}
		if t := trackingLabel(rec); t != "" {
			extra += ", " + t
		}
		fmt.Fprintf(w, "  %s  %s\n", name, dim.Sprintf("(%s)", extra))
	}
	fmt.Fprintln(w)
}
