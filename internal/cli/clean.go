package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/store"
)

// CleanOptions holds flags for the clean command.
type CleanOptions struct {
	*RootOptions
	DryRun bool
}

// CleanResult lists the removed failure files.
type CleanResult struct {
	Removed []string `json:"removed"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clean [prefix]",
		Short: "Remove the actual values and artifacts of failed snapshots",
		Long: `Remove every file left by failed assertions. References are kept.

Examples:
  snapcheck clean
  snapcheck clean user_test/ --dry-run`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(opts, prefixArg(args), cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "show what would be removed")

	return cmd
}

func runClean(opts *CleanOptions, prefix string, cmd *cobra.Command) error {
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

	result := CleanResult{Removed: []string{}, DryRun: opts.DryRun}
	for _, e := range entries {
		if !store.IsFailureKey(e.Key) {
			continue
		}
		if !opts.DryRun {
			if err := b.Remove(ctx, e.Key); err != nil {
				return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to remove failure file", err)
			}
		}
		result.Removed = append(result.Removed, e.Key)
	}
	opts.logger(cmd).Debug("cleaned failure files", "removed", len(result.Removed), "dry_run", opts.DryRun)

	if f.JSON() {
		return f.Success(result)
	}
	verb := "Removed"
	if opts.DryRun {
		verb = "Would remove"
	}
	for _, k := range result.Removed {
		fmt.Fprintf(f.Writer, "%s %s\n", verb, k)
	}
	fmt.Fprintf(f.Writer, "%s %d file(s)\n", verb, len(result.Removed))
	return nil
}
