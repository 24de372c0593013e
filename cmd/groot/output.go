package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"groot/internal/compare"
	"groot/internal/diff"
	"groot/internal/hasher"
	"groot/internal/repo"
	"groot/shared/types"

	"github.com/fatih/color"
)

var (
	out = io.Writer(os.Stdout)

	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	grey   = color.New(color.FgHiBlack)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

func printStaged(entry shared.Entry) {
	fmt.Fprintf(out, "%s %s %s\n", green.Sprint("+"), entry.Path, grey.Sprint(entry.Hash.Short()))
}

func printCommitted(d hasher.Digest, message string, files int) {
	fmt.Fprintf(out, "[%s] %s\n %d file(s) committed\n", yellow.Sprint(d.Short()), firstLine(message), files)
}

func printLogEntry(entry shared.LogEntry, oneline bool) {
	c := entry.Commit
	if oneline {
		fmt.Fprintf(out, "%s %s\n", yellow.Sprint(entry.Digest.Short()), firstLine(c.Message))
		return
	}

	yellow.Fprintf(out, "commit %s\n", entry.Digest)
	if !c.IsRoot() {
		fmt.Fprintf(out, "Parent: %s\n", c.Parent)
	}
	fmt.Fprintf(out, "Date:   %s\n\n", c.Date)
	for _, line := range strings.Split(c.Message, "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
	fmt.Fprintln(out)
}

// printCommitDiff renders a commit diff. With a nil engine whole runs are
// printed with "++" and "--" markers; otherwise unified hunks.
func printCommitDiff(cd *compare.CommitDiff, engine *diff.Engine) {
	if cd.BaseDigest == "" {
		fmt.Fprintf(out, "Changes in commit %s (root commit):\n", yellow.Sprint(cd.Digest.Short()))
	} else {
		fmt.Fprintf(out, "Changes in commit %s against %s:\n", yellow.Sprint(cd.Digest.Short()), yellow.Sprint(cd.BaseDigest.Short()))
	}

	for _, fd := range cd.Files {
		fmt.Fprintln(out)
		bold.Fprintf(out, "File: %s\n", fd.Path)

		switch fd.Status {
		case compare.NoPriorVersion:
			grey.Fprintln(out, "(no prior version)")
		case compare.Missing:
			red.Fprintf(out, "(content unavailable: %v)\n", fd.Err)
		case compare.Diffed:
			if !fd.Result.Changed() {
				grey.Fprintln(out, "(unchanged)")
				continue
			}
			if engine != nil {
				printUnified(engine.Format(fd.Result))
			} else {
				printRuns(fd.Result.Runs)
			}
			grey.Fprintf(out, "%d addition(s), %d deletion(s)\n", fd.Result.Stats.Additions, fd.Result.Stats.Deletions)
		}
	}
}

func printRuns(runs []diff.Run) {
	for _, run := range runs {
		for _, line := range run.Lines {
			switch run.Kind {
			case diff.Added:
				green.Fprintf(out, "++ %s\n", line)
			case diff.Removed:
				red.Fprintf(out, "-- %s\n", line)
			default:
				grey.Fprintf(out, "   %s\n", line)
			}
		}
	}
}

func printUnified(text string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			cyan.Fprintln(out, line)
		case strings.HasPrefix(line, "+"):
			green.Fprintln(out, line)
		case strings.HasPrefix(line, "-"):
			red.Fprintln(out, line)
		default:
			fmt.Fprintln(out, line)
		}
	}
}

func printStatus(head hasher.Digest, entries []shared.Entry) {
	if head == "" {
		fmt.Fprintln(out, "No commits yet")
	} else {
		fmt.Fprintf(out, "On commit %s\n", yellow.Sprint(head.Short()))
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "Nothing in the staging area")
		return
	}

	fmt.Fprintln(out, "Files to be committed:")
	for _, e := range entries {
		fmt.Fprintf(out, "\t%s %s\n", red.Sprint(e.Path), grey.Sprint(e.Hash.Short()))
	}
}

func printVerifyReport(report *repo.VerifyReport) {
	fmt.Fprintf(out, "%d object(s), %d commit(s) checked\n", report.Objects, report.Commits)
	if report.OK() {
		green.Fprintln(out, "ok")
		return
	}
	for _, p := range report.Problems {
		red.Fprintf(out, "  %s\n", p)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
