package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	ItemsFile  string
	ItemIDs    []string
	ChangeFile string
	Sample     int
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what a change set would do, without applying it",
		Long: `Show the concrete available-date diff a change set would produce for a
sample of the selected items, over the next 90 days. Nothing is written.

Example:
  bulkedit preview --items tours.txt --change summer.yaml --sample 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return previewBatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ItemsFile, "items", "", "file with one item ID per line")
	cmd.Flags().StringSliceVar(&opts.ItemIDs, "id", nil, "item ID (repeatable, alternative to --items)")
	cmd.Flags().StringVar(&opts.ChangeFile, "change", "", "change set file (.cue, .yaml or .json)")
	cmd.Flags().IntVar(&opts.Sample, "sample", 0, "number of items to preview (default 5)")
	cmd.MarkFlagRequired("change")

	return cmd
}

func previewBatch(cmd *cobra.Command, opts *PreviewOptions) error {
	f := newFormatter(opts.RootOptions, cmd)

	itemIDs := opts.ItemIDs
	if opts.ItemsFile != "" {
		loaded, err := LoadItemIDs(opts.ItemsFile)
		if err != nil {
			f.Error(ErrCodeBadItems, err.Error(), nil)
			return WrapExitError(ExitCommandError, "load item ids", err)
		}
		itemIDs = append(itemIDs, loaded...)
	}

	change, err := LoadChangeSet(opts.ChangeFile)
	if err != nil {
		f.Error(ErrCodeBadChange, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load change set", err)
	}

	ctx := cmd.Context()
	b, err := openBackends(ctx, opts.RootOptions)
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return err
	}
	defer b.Close()

	orch := newOrchestrator(opts.RootOptions, b, batch.Config{})
	result, err := orch.Preview(ctx, itemIDs, change, opts.Sample)
	if err != nil {
		f.Error(batchErrorCode(err), err.Error(), nil)
		return WrapExitError(batchExitCode(err), "preview", err)
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "Preview %s..%s over %d items (showing %d):\n",
		result.WindowStart, result.WindowEnd, result.TotalItems, result.SampleSize)
	for _, item := range result.Items {
		fmt.Fprintf(f.Writer, "  %s: +%d -%d dates (%d unchanged)\n",
			item.ItemID, len(item.Diff.Added), len(item.Diff.Removed), len(item.Diff.Unchanged))
		if opts.Verbose {
			for _, d := range item.Diff.Added {
				fmt.Fprintf(f.Writer, "    + %s\n", d)
			}
			for _, d := range item.Diff.Removed {
				fmt.Fprintf(f.Writer, "    - %s\n", d)
			}
		}
	}
	for _, failure := range result.Errors {
		fmt.Fprintf(f.Writer, "  FAILED %s: %s\n", failure.ItemID, failure.Message)
	}
	return nil
}
