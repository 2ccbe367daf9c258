package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ItemsFile   string
	ItemIDs     []string
	ChangeFile  string
	OperationID string
	User        string
	ChunkSize   int
	TimeBudget  time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a change set across a list of items",
		Long: `Apply a change set across a list of items in checkpointed chunks.

When the time budget runs out before every item is processed, the run exits
successfully with an INTERRUPTED state and a resume hint; re-run with
'bulkedit resume <operation-id>' to continue from the checkpoint.

Example:
  bulkedit run --items tours.txt --change summer.yaml --user alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ItemsFile, "items", "", "file with one item ID per line")
	cmd.Flags().StringSliceVar(&opts.ItemIDs, "id", nil, "item ID (repeatable, alternative to --items)")
	cmd.Flags().StringVar(&opts.ChangeFile, "change", "", "change set file (.cue, .yaml or .json)")
	cmd.Flags().StringVar(&opts.OperationID, "operation-id", "", "explicit operation ID (default: derived from the request)")
	cmd.Flags().StringVar(&opts.User, "user", "", "submitting user, part of the derived operation ID")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "items per checkpoint (default 50)")
	cmd.Flags().DurationVar(&opts.TimeBudget, "budget", 0, "wall-clock budget per invocation (default 25s)")
	cmd.MarkFlagRequired("change")

	return cmd
}

func runBatch(cmd *cobra.Command, opts *RunOptions) error {
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

	orch := newOrchestrator(opts.RootOptions, b, batch.Config{
		ChunkSize:  opts.ChunkSize,
		TimeBudget: opts.TimeBudget,
	})

	f.VerboseLog("starting batch over %d items", len(itemIDs))
	result, err := orch.Start(ctx, batch.StartRequest{
		ItemIDs:     itemIDs,
		Change:      change,
		OperationID: opts.OperationID,
		User:        opts.User,
	})
	if err != nil {
		f.Error(batchErrorCode(err), err.Error(), nil)
		return WrapExitError(batchExitCode(err), "batch run", err)
	}

	if err := renderResult(f, result); err != nil {
		return err
	}
	if result.FailedCount > 0 {
		return NewExitError(ExitFailure, "some items failed")
	}
	return nil
}
