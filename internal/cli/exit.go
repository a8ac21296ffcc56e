package cli

import (
	"context"
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bufferopt/pkg/errors"
)

// Process exit statuses.
const (
	ExitOK       = 0
	ExitUsage    = 1
	ExitFailure  = 2
	ExitCanceled = 130
)

// ExitCode maps an error returned by a command to the process exit status.
// Usage, input and configuration problems exit with ExitUsage; anything
// else is a failure of the tool itself.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitCanceled
	case errors.IsUserError(err):
		return ExitUsage
	}
	return ExitFailure
}

// userArgs tags positional argument errors as invalid input.
func userArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", cmd.CommandPath())
		}
		return nil
	}
}

// flagError tags flag parsing errors as invalid input.
func flagError(cmd *cobra.Command, err error) error {
	return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", cmd.CommandPath())
}
