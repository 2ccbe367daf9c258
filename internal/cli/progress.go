package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "progress <operation-id>",
		Short:         "Show the latest progress snapshot for an operation",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showProgress(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func showProgress(cmd *cobra.Command, opts *RootOptions, operationID string) error {
	f := newFormatter(opts, cmd)
	ctx := cmd.Context()

	b, err := openBackends(ctx, opts)
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return err
	}
	defer b.Close()

	orch := newOrchestrator(opts, b, batch.Config{})
	progress, err := orch.GetProgress(ctx, operationID)
	if err != nil {
		f.Error(batchErrorCode(err), err.Error(), nil)
		return WrapExitError(batchExitCode(err), "progress", err)
	}
	if progress == nil {
		f.Error(ErrCodeCannotResume,
			fmt.Sprintf("no progress known for operation %s", operationID), nil)
		return NewExitError(ExitCommandError, "unknown operation")
	}

	if opts.Format == "json" {
		return f.Success(progress)
	}
	fmt.Fprintf(f.Writer, "Operation %s: %s\n", progress.OperationID, progress.Status)
	fmt.Fprintf(f.Writer, "  %d/%d processed (%.1f%%), %d failed, %d remaining\n",
		progress.Processed, progress.Total, progress.PercentComplete,
		progress.Failed, progress.Remaining)
	if progress.EstimatedSecondsRemaining > 0 {
		fmt.Fprintf(f.Writer, "  ~%.0fs remaining at the current rate\n", progress.EstimatedSecondsRemaining)
	}
	return nil
}
