package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Failed   bool
	ExitCode bool
}

// ListEntry is one stored snapshot file.
type ListEntry struct {
	Key      string    `json:"key"`
	Kind     string    `json:"kind"` // "reference", "actual" or "artifact"
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List stored snapshots",
		Long: `List the references, actual values and diff artifacts in a store.

A prefix restricts the listing to keys that start with it, for example
the snapshots of one test file: user_test/

Examples:
  snapcheck list
  snapcheck list --failed
  snapcheck list user_test/ --store ./snapshots.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, prefixArg(args), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only list actual values and artifacts of failed assertions")
	cmd.Flags().BoolVar(&opts.ExitCode, "exit-code", false, "exit with status 1 when failures are listed")

	return cmd
}

func runList(opts *ListOptions, prefix string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	b, err := opts.open(f, opts.StorePath(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	entries, err := b.List(ctx, prefix)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to list snapshots", err)
	}

	list := make([]ListEntry, 0, len(entries))
	failed := 0
	for _, e := range entries {
		kind := entryKind(e.Key)
		if kind != "reference" {
			failed++
		}
		if opts.Failed && kind == "reference" {
			continue
		}
		list = append(list, ListEntry{Key: e.Key, Kind: kind, Size: e.Size, Modified: e.ModTime})
	}
	opts.logger(cmd).Debug("listed snapshots", "store", opts.StorePath(), "prefix", prefix, "entries", len(entries))

	if f.JSON() {
		if err := f.Success(list); err != nil {
			return err
		}
	} else if len(list) == 0 {
		fmt.Fprintf(f.Writer, "No snapshots found in %s\n", opts.StorePath())
	} else {
		rows := make([][]string, len(list))
		for i, e := range list {
			rows[i] = []string{e.Key, e.Kind, strconv.FormatInt(e.Size, 10)}
		}
		if err := f.Table([]string{"KEY", "KIND", "SIZE"}, rows); err != nil {
			return err
		}
	}

	if opts.ExitCode && failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d failure file(s) pending", failed))
	}
	return nil
}

func entryKind(key string) string {
	switch {
	case store.IsActualKey(key):
		return "actual"
	case store.IsFailureKey(key):
		return "artifact"
	default:
		return "reference"
	}
}

func prefixArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
