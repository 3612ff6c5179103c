package app

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/rules"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Err: fmt.Errorf(format, args...)}
}

func failuref(format string, args ...any) error {
	return &ExitError{Code: ExitFailure, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// usageArgs turns a positional-argument check into a usage error.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &ExitError{Code: ExitUsage, Err: err}
		}
		return nil
	}
}

func flagUsageError(cmd *cobra.Command, err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// classifyInputError marks errors caused by what the user passed in, a
// scan root that is missing or not a directory or a bad rule file, as
// usage errors. Everything else is returned unchanged.
func classifyInputError(err error) error {
	var notFound *cleaner.NotFoundError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &notFound),
		errors.Is(err, cleaner.ErrNotDirectory),
		errors.Is(err, rules.ErrInvalidRule):
		return &ExitError{Code: ExitUsage, Err: err}
	}
	return err
}
