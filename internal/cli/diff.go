package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"unicode/utf8"

	"github.com/sourcegraph/go-diff/diff"
	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/diffing"
	"github.com/roach88/snapcheck/store"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	ExitCode bool
	Context  int
}

// DiffResult describes one failed snapshot.
type DiffResult struct {
	Reference string `json:"reference"`
	Actual    string `json:"actual"`
	Binary    bool   `json:"binary,omitempty"`
	Added     int    `json:"added"`
	Removed   int    `json:"removed"`
	Patch     string `json:"patch,omitempty"`
}

// DiffSummary is the diff command output.
type DiffSummary struct {
	Files   []DiffResult `json:"files"`
	Added   int          `json:"added"`
	Removed int          `json:"removed"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff [prefix]",
		Short: "Show how failed snapshots differ from their references",
		Long: `Print a unified diff from each reference to the actual value left by a
failed assertion. Binary snapshots (images, MessagePack) are listed but
not diffed.

Examples:
  snapcheck diff
  snapcheck diff user_test/TestUser --context 1
  snapcheck diff --exit-code`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, prefixArg(args), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ExitCode, "exit-code", false, "exit with status 1 when any snapshot differs")
	cmd.Flags().IntVar(&opts.Context, "context", -1, "lines of context (default from config, else 3)")

	return cmd
}

func runDiff(opts *DiffOptions, prefix string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	b, err := opts.open(f, opts.StorePath(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	fails, err := failures(ctx, b, prefix)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to list snapshots", err)
	}

	summary, err := diffFailures(ctx, b, fails, opts.contextLines())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to diff snapshots", err)
	}
	opts.logger(cmd).Debug("diffed snapshots", "failures", len(fails), "added", summary.Added, "removed", summary.Removed)

	if f.JSON() {
		if err := f.Success(summary); err != nil {
			return err
		}
	} else {
		writeDiffText(f, summary)
	}

	if opts.ExitCode && len(summary.Files) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d snapshot(s) differ", len(summary.Files)))
	}
	return nil
}

func (o *DiffOptions) contextLines() int {
	switch {
	case o.Context >= 0:
		return o.Context
	case o.config.Context > 0:
		return o.config.Context
	default:
		return 3
	}
}

// diffFailures builds one patch per text failure and counts its changes by
// parsing the combined patch back.
func diffFailures(ctx context.Context, c store.Catalog, fails []failure, contextLines int) (DiffSummary, error) {
	summary := DiffSummary{Files: make([]DiffResult, 0, len(fails))}
	var patches strings.Builder
	index := make(map[string]int)

	for _, fl := range fails {
		reference, err := c.Read(ctx, fl.Reference)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return summary, err
		}
		actual, err := c.Read(ctx, fl.Actual)
		if err != nil {
			return summary, err
		}

		r := DiffResult{Reference: fl.Reference, Actual: fl.Actual}
		if !utf8.Valid(reference) || !utf8.Valid(actual) {
			r.Binary = true
			summary.Files = append(summary.Files, r)
			continue
		}

		patch, err := diffing.UnifiedDiffFiles(string(reference), string(actual), "a/"+fl.Reference, "b/"+fl.Actual, contextLines)
		if err != nil {
			return summary, fmt.Errorf("diff %s: %w", fl.Actual, err)
		}
		r.Patch = patch
		index["b/"+fl.Actual] = len(summary.Files)
		summary.Files = append(summary.Files, r)
		patches.WriteString(patch)
	}

	if patches.Len() == 0 {
		return summary, nil
	}
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patches.String())).ReadAllFiles()
	if err != nil {
		return summary, fmt.Errorf("parse patch: %w", err)
	}
	for _, fd := range fileDiffs {
		i, ok := index[fd.NewName]
		if !ok {
			continue
		}
		added, removed := countChanges(fd)
		summary.Files[i].Added = added
		summary.Files[i].Removed = removed
		summary.Added += added
		summary.Removed += removed
	}
	return summary, nil
}

func countChanges(fd *diff.FileDiff) (added, removed int) {
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if strings.HasPrefix(line, "+") {
				added++
			} else if strings.HasPrefix(line, "-") {
				removed++
			}
		}
	}
	return added, removed
}

func writeDiffText(f *OutputFormatter, summary DiffSummary) {
	if len(summary.Files) == 0 {
		fmt.Fprintln(f.Writer, "No failed snapshots")
		return
	}
	for _, r := range summary.Files {
		if r.Binary {
			fmt.Fprintf(f.Writer, "Binary snapshots a/%s and b/%s differ\n", r.Reference, r.Actual)
			continue
		}
		fmt.Fprint(f.Writer, r.Patch)
	}
	fmt.Fprintf(f.Writer, "%d snapshot(s) differ, %d insertion(s)(+), %d deletion(s)(-)\n",
		len(summary.Files), summary.Added, summary.Removed)
}
