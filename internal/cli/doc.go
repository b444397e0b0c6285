// Package cli wires the three subcommands of §6.5 — generate, parse,
// validate — onto a github.com/spf13/cobra root command (grounded on
// C360Studio-semspec/cmd/semspec/main.go's rootCmd/RunE shape), rendering
// diagnostics with github.com/gookit/color and reflowing documentation
// listings with github.com/mitchellh/go-wordwrap.
package cli
