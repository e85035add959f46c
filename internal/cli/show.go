package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/codec"
	"github.com/roach88/snapcheck/dump"
	"github.com/roach88/snapcheck/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Raw bool
}

// ShowResult describes one stored snapshot.
type ShowResult struct {
	Key    string `json:"key"`
	Format string `json:"format"`
	Size   int    `json:"size"`
	Digest string `json:"digest"`

	// Text is the readable rendering: the text itself, the decoded tree of
	// a MessagePack snapshot, or an image summary.
	Text string `json:"text,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Print one stored snapshot",
		Long: `Print a stored snapshot in readable form. Text formats are printed
as-is, MessagePack snapshots as a decoded tree, and PNG snapshots as a
size summary. --raw writes the stored bytes unchanged.

Examples:
  snapcheck show user_test/TestUser.1.txt
  snapcheck show user_test/TestUser.payload.msgpack`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "write the stored bytes unchanged")

	return cmd
}

func runShow(opts *ShowOptions, key string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	b, err := opts.open(f, opts.StorePath(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	data, err := b.Read(ctx, key)
	if errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "snapshot not found: "+key, err)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to read snapshot", err)
	}

	if opts.Raw && !f.JSON() {
		_, err := f.Writer.Write(data)
		return err
	}

	result := ShowResult{
		Key:    key,
		Format: strings.TrimPrefix(path.Ext(key), "."),
		Size:   len(data),
		Digest: store.Digest(data),
	}
	result.Text, err = render(result.Format, data)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to decode snapshot", err)
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprint(f.Writer, result.Text)
	if !strings.HasSuffix(result.Text, "\n") {
		fmt.Fprintln(f.Writer)
	}
	return nil
}

// render returns a readable form of stored bytes.
func render(format string, data []byte) (string, error) {
	switch format {
	case codec.FormatMsgPack:
		tree, err := codec.DecodeMsgPackTree(data)
		if err != nil {
			return "", err
		}
		return dump.String(tree), nil
	case codec.FormatPNG:
		img, err := codec.PNG{}.Decode(data)
		if err != nil {
			return "", err
		}
		bounds := img.Bounds()
		return fmt.Sprintf("PNG image %dx%d, %d bytes", bounds.Dx(), bounds.Dy(), len(data)), nil
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return fmt.Sprintf("%d bytes of binary data, digest %s", len(data), store.ShortDigest(data)), nil
}
