package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <change-file>",
		Short: "Validate a change set file without touching any item",
		Long: `Validate a change set file against the schema and the merge rules that
do not depend on stored records (reset exclusivity, bound ordering,
change-internal date conflicts).

Rules involving stored state, like dates outside an item's existing bounds,
can only be checked at run or preview time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateChange(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func validateChange(cmd *cobra.Command, opts *RootOptions, path string) error {
	f := newFormatter(opts, cmd)

	change, err := LoadChangeSet(path)
	if err != nil {
		f.Error(ErrCodeBadChange, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load change set", err)
	}

	change = change.Normalize()
	if change.IsEmpty() {
		f.Error(ErrCodeEmptyChangeSet, "change set has no effect: every field is absent and reset is false", nil)
		return NewExitError(ExitCommandError, "empty change set")
	}
	if err := change.Validate(); err != nil {
		var verr *availability.ValidationError
		if errors.As(err, &verr) {
			f.Error(ErrCodeValidation, verr.Message, map[string]any{"rule": verr.Rule})
		} else {
			f.Error(ErrCodeValidation, err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "invalid change set", err)
	}

	if opts.Format == "json" {
		return f.Success(change)
	}
	fmt.Fprintf(f.Writer, "%s: valid change set\n", path)
	return nil
}
