package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	To              string
	IncludeFailures bool
}

// ExportResult lists the copied keys.
type ExportResult struct {
	Destination string   `json:"destination"`
	Exported    []string `json:"exported"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export [prefix] --to <store>",
		Short: "Copy references into another store",
		Long: `Copy references from one store into another, for example from a
snapshot directory into a SQLite database or back. The destination is
created when missing; existing keys are overwritten.

Examples:
  snapcheck export --to ./snapshots.db
  snapcheck export user_test/ --store ./snapshots.db --to ./testdata/__snapshots__`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, prefixArg(args), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "destination directory or SQLite database (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().BoolVar(&opts.IncludeFailures, "include-failures", false, "also copy actual values and artifacts")

	return cmd
}

func runExport(opts *ExportOptions, prefix string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)
	log := opts.logger(cmd)

	src, err := opts.open(f, opts.StorePath(), false)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := opts.open(f, opts.To, true)
	if err != nil {
		return err
	}
	defer dst.Close()

	entries, err := src.List(ctx, prefix)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to list snapshots", err)
	}

	result := ExportResult{Destination: opts.To, Exported: []string{}}
	for _, e := range entries {
		if store.IsFailureKey(e.Key) && !opts.IncludeFailures {
			continue
		}
		data, err := src.Read(ctx, e.Key)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to read snapshot", err)
		}
		if err := dst.Write(ctx, e.Key, data); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write snapshot", err)
		}
		log.Debug("exported snapshot", "key", e.Key, "bytes", len(data))
		result.Exported = append(result.Exported, e.Key)
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "Exported %d snapshot(s) to %s\n", len(result.Exported), opts.To)
	return nil
}
