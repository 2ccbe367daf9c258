package cli

import (
	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <operation-id>",
		Short: "Resume an interrupted batch from its checkpoint",
		Long: `Resume an interrupted batch from its last checkpoint.

Only the items that were not yet processed are touched; items applied by
earlier invocations are never re-applied. Checkpoints older than the
retention window (24h) cannot be resumed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resumeBatch(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func resumeBatch(cmd *cobra.Command, opts *RootOptions, operationID string) error {
	f := newFormatter(opts, cmd)
	ctx := cmd.Context()

	b, err := openBackends(ctx, opts)
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return err
	}
	defer b.Close()

	orch := newOrchestrator(opts, b, batch.Config{})
	result, err := orch.Resume(ctx, operationID)
	if err != nil {
		f.Error(batchErrorCode(err), err.Error(), nil)
		return WrapExitError(batchExitCode(err), "resume", err)
	}

	if err := renderResult(f, result); err != nil {
		return err
	}
	if result.FailedCount > 0 {
		return NewExitError(ExitFailure, "some items failed")
	}
	return nil
}
