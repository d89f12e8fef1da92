package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/ui"
)

// usageError marks errors that should exit with code 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// errHelpShown exits 2 without printing anything else.
var errHelpShown = errors.New("help shown")

// rootFlags are the root flags (apply to every subcommand).
type rootFlags struct {
	configPath string
	theme      string
}

// Execute runs the CLI and returns an exit code (0 ok, 1 error, 2 usage).
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, errHelpShown) {
		return 2
	}
	ui.Fail(stderr, err.Error())
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

// NewRootCmd builds the `todo` command tree.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "todo",
		Short:         "todo - a tiny to-do list with optional remote sync",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.theme != "" {
				ui.SetTheme(flags.theme)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelpShown
		},
		Example: `  todo add "Buy milk"
  todo ls --filter 'text contains "milk"'
  todo edit 2 "Buy oat milk"
  todo rm 3`,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (default ~/.tada/config.yaml)")
	root.PersistentFlags().StringVar(&flags.theme, "theme", "", "output theme: classic, neon or mono")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	root.AddCommand(newAddCmd(flags))
	root.AddCommand(newListCmd(flags))
	root.AddCommand(newEditCmd(flags))
	root.AddCommand(newRemoveCmd(flags))
	root.AddCommand(newApplyCmd(flags))
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newAuthCmd(flags))
	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage line.
func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}
