package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/store"
)

// AcceptOptions holds flags for the accept command.
type AcceptOptions struct {
	*RootOptions
	DryRun bool
}

// AcceptResult lists the references replaced by actual values.
type AcceptResult struct {
	Accepted []string `json:"accepted"`
	Removed  []string `json:"removed"`
	DryRun   bool     `json:"dry_run,omitempty"`
}

// NewAcceptCommand creates the accept command.
func NewAcceptCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AcceptOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "accept [prefix]",
		Short: "Promote actual values of failed snapshots to references",
		Long: `Replace each reference with the actual value left by its failed
assertion, then remove the actual value and its diff artifacts.

Examples:
  snapcheck accept
  snapcheck accept user_test/TestUser --dry-run`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccept(opts, prefixArg(args), cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "show what would be accepted")

	return cmd
}

func runAccept(opts *AcceptOptions, prefix string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)
	log := opts.logger(cmd)

	b, err := opts.open(f, opts.StorePath(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	fails, err := failures(ctx, b, prefix)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to list snapshots", err)
	}

	result := AcceptResult{Accepted: []string{}, Removed: []string{}, DryRun: opts.DryRun}
	for _, fl := range fails {
		extra, err := artifacts(ctx, b, fl.Actual)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to list artifacts", err)
		}
		result.Accepted = append(result.Accepted, fl.Reference)
		result.Removed = append(result.Removed, fl.Actual)
		result.Removed = append(result.Removed, extra...)
		if opts.DryRun {
			continue
		}

		data, err := b.Read(ctx, fl.Actual)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to read actual value", err)
		}
		if err := b.Write(ctx, fl.Reference, data); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write reference", err)
		}
		for _, k := range append([]string{fl.Actual}, extra...) {
			if err := b.Remove(ctx, k); err != nil {
				return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to remove failure file", err)
			}
		}
		log.Debug("accepted snapshot", "reference", fl.Reference, "digest", store.ShortDigest(data))
	}

	if f.JSON() {
		return f.Success(result)
	}
	verb := "Accepted"
	if opts.DryRun {
		verb = "Would accept"
	}
	for _, k := range result.Accepted {
		fmt.Fprintf(f.Writer, "%s %s\n", verb, k)
	}
	fmt.Fprintf(f.Writer, "%s %d snapshot(s)\n", verb, len(result.Accepted))
	return nil
}
