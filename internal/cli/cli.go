package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code, per
// §6.5's "Exit codes: 0 on success; non-zero on any error surfaced by the
// core."
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// New builds the root command: `m2t generate|parse|validate`.
func New(outW, errW io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "m2t",
		Short:         "A model-to-text template engine",
		Long:          "m2t parses and executes Acceleo-dialect model-to-text templates against imported models.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)

	root.AddCommand(newGenerateCmd(outW, errW))
	root.AddCommand(newParseCmd(outW, errW))
	root.AddCommand(newValidateCmd(outW, errW))
	return root
}

// Run executes root and translates a returned error into a process exit
// code, printing it in red via gookit/color. Callers pass os.Exit's
// eventual argument through directly.
func Run(root *cobra.Command) int {
	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		code := 1
		if ok := asExitError(err, &exitErr); ok {
			code = exitErr.Code
		}
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("error: %v", err))
		slog.Error("m2t: command failed", "error", err)
		return code
	}
	return 0
}

// setDebugLogging raises the default slog logger to Debug level when
// enabled, per §6.6's "debug" option: "Enables diagnostic logging at
// statement/scope boundaries."
func setDebugLogging(enabled bool) {
	level := slog.LevelInfo
	if enabled {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func asExitError(err error, target **ExitError) bool {
	for err != nil {
		if ee, ok := err.(*ExitError); ok {
			*target = ee
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
