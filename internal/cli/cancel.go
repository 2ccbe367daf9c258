package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <operation-id>",
		Short: "Cancel an interrupted batch operation",
		Long: `Cancel an interrupted batch operation by discarding its checkpoint.

Changes already applied to items are NOT rolled back - cancellation only
prevents the remaining items from being processed. Items touched before the
interruption keep their new availability rules.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cancelBatch(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func cancelBatch(cmd *cobra.Command, opts *RootOptions, operationID string) error {
	f := newFormatter(opts, cmd)
	ctx := cmd.Context()

	b, err := openBackends(ctx, opts)
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return err
	}
	defer b.Close()

	orch := newOrchestrator(opts, b, batch.Config{})
	existed, err := orch.Cancel(ctx, operationID)
	if err != nil {
		f.Error(batchErrorCode(err), err.Error(), nil)
		return WrapExitError(batchExitCode(err), "cancel", err)
	}

	if opts.Format == "json" {
		return f.Success(map[string]any{
			"operation_id": operationID,
			"cancelled":    existed,
		})
	}
	if existed {
		fmt.Fprintf(f.Writer, "Operation %s cancelled.\n", operationID)
		fmt.Fprintln(f.Writer, "Already-applied changes were NOT rolled back.")
	} else {
		fmt.Fprintf(f.Writer, "No checkpoint found for operation %s; nothing to cancel.\n", operationID)
	}
	return nil
}
