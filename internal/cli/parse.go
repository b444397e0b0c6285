package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/vk/m2t/internal/parser"
)

func newParseCmd(outW, errW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse SOURCE",
		Short: "Parse a template source file and report syntax errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			src, err := os.ReadFile(source)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			module, err := parser.Parse(string(src))
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			fmt.Fprintln(outW, color.Green.Sprintf(
				"OK: module %q — %d template(s), %d quer(y/ies), %d macro(s)",
				module.Name, module.Templates.Len(), module.Queries.Len(), module.Macros.Len(),
			))
			return nil
		},
	}
	return cmd
}
