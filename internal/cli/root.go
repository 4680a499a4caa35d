package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes returned by Run.
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// errUsage marks errors caused by bad flags rather than a failed run.
var errUsage = errors.New("usage")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "heapcache-bench",
		Short:         "Exercise a heap-bounded cache",
		Long:          "heapcache-bench drives a synthetic workload against a sharded, heap-size-bounded cache and reports its usage.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print heapcache-bench version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "heapcache-bench version %s\n", version)
		},
	}
}

// Run executes the root command and returns an exit code.
func Run() int {
	return execute(newRootCmd())
}

func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	if errors.Is(err, errUsage) || isFlagError(err) {
		return ExitUsageError
	}
	return ExitRuntimeError
}

// isFlagError reports whether cobra rejected the command line itself.
func isFlagError(err error) bool {
	var flagErr *flagParseError
	return errors.As(err, &flagErr)
}

type flagParseError struct{ err error }

func (e *flagParseError) Error() string { return e.err.Error() }
func (e *flagParseError) Unwrap() error { return e.err }
