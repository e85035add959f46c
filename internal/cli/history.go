package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [key]",
		Short: "Show journaled verdicts from a SQLite store",
		Long: `Show the verdicts a SQLite store has journaled.

Without a key, prints one line per test run with its outcome counts.
With a key, prints the verdicts of that snapshot, newest first.

Examples:
  snapcheck history --store ./snapshots.db
  snapcheck history user_test/TestUser.1.txt --store ./snapshots.db --limit 5`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, prefixArg(args), cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 20, "maximum verdicts to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, key string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	b, err := opts.open(f, opts.StorePath(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	if b.sqlite == nil {
		return f.Fail(ExitCommandError, ErrCodeUnsupported, "history requires a SQLite store (--store path.db)", nil)
	}

	if key == "" {
		runs, err := b.sqlite.Runs(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to read runs", err)
		}
		if f.JSON() {
			if runs == nil {
				runs = []store.RunSummary{}
			}
			return f.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(f.Writer, "No runs recorded")
			return nil
		}
		rows := make([][]string, len(runs))
		for i, r := range runs {
			rows[i] = []string{r.RunID, r.StartedAt.Format(time.RFC3339), outcomeCounts(r.Outcomes)}
		}
		return f.Table([]string{"RUN", "STARTED", "OUTCOMES"}, rows)
	}

	entries, err := b.sqlite.History(ctx, key, opts.Limit)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to read history", err)
	}
	if f.JSON() {
		if entries == nil {
			entries = []store.JournalEntry{}
		}
		return f.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(f.Writer, "No verdicts recorded for %s\n", key)
		return nil
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		digest := e.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		rows[i] = []string{strconv.FormatInt(e.Seq, 10), e.RecordedAt.Format(time.RFC3339), e.Outcome, digest, e.RunID}
	}
	return f.Table([]string{"SEQ", "RECORDED", "OUTCOME", "DIGEST", "RUN"}, rows)
}

// outcomeCounts renders counts as "failed=1 passed=3", sorted by outcome.
func outcomeCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.Itoa(counts[name])
	}
	return strings.Join(parts, " ")
}
