package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/vk/m2t/internal/config"
	"github.com/vk/m2t/internal/ctxlog"
	"github.com/vk/m2t/internal/interp"
	"github.com/vk/m2t/internal/modelmanifest"
	"github.com/vk/m2t/internal/modelresource"
	"github.com/vk/m2t/internal/outstrategy"
	"github.com/vk/m2t/internal/parser"
	"github.com/vk/m2t/internal/protectedarea"
	"github.com/vk/m2t/internal/watch"
)

func newGenerateCmd(outW, errW io.Writer) *cobra.Command {
	var (
		configPath   string
		manifestPath string
		mainTemplate string
		outputDir    string
		charset      string
		debug        bool
		watchFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "generate SOURCE",
		Short: "Execute a module's main template and commit its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			opts, err := config.NewHCLLoader().Load(configPath)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			if mainTemplate != "" {
				opts.MainTemplate = mainTemplate
			}
			if outputDir != "" {
				opts.OutputDirectory = outputDir
			}
			if charset != "" {
				opts.Charset = charset
			}
			if debug {
				opts.Debug = true
			}
			setDebugLogging(opts.Debug)

			run := func() error {
				return runGenerate(outW, source, manifestPath, opts)
			}

			if !watchFlag {
				if err := run(); err != nil {
					return &ExitError{Code: 1, Message: err.Error()}
				}
				return nil
			}

			w, err := watch.New(watch.Config{Path: source})
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			defer w.Close()
			fmt.Fprintln(outW, color.Cyan.Sprintf("watching %s for changes", source))
			if err := run(); err != nil {
				fmt.Fprintln(errW, color.Red.Sprintf("error: %v", err))
			}
			watchCtx := ctxlog.WithLogger(cmd.Context(), slog.Default())
			return w.Run(watchCtx, run)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "m2t.hcl", "path to the generate-options configuration file")
	cmd.Flags().StringVar(&manifestPath, "models", "models.yaml", "path to the model manifest file")
	cmd.Flags().StringVar(&mainTemplate, "main-template", "", "overrides the auto-detected main template")
	cmd.Flags().StringVar(&outputDir, "output-directory", "", "base path for the file-system output strategy")
	cmd.Flags().StringVar(&charset, "charset", "", "default output encoding")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable diagnostic logging at statement/scope boundaries")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "regenerate whenever the source file changes")
	return cmd
}

func runGenerate(outW io.Writer, source, manifestPath string, opts *config.Options) error {
	src, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}
	module, err := parser.Parse(string(src))
	if err != nil {
		return err
	}

	manifest, err := modelmanifest.Load(manifestPath)
	if err != nil {
		return err
	}
	manifest = manifest.Resolve(opts.Models)
	models, err := modelresource.LoadAll(manifest)
	if err != nil {
		return err
	}

	var strategy interp.OutputStrategy
	if opts.OutputDirectory != "" {
		strategy = outstrategy.NewFileSystem(opts.OutputDirectory)
	} else {
		strategy = outstrategy.NewMemory()
	}

	pm := protectedarea.New()
	if opts.OutputDirectory != "" {
		if err := prescanProtectedAreas(pm, opts.OutputDirectory); err != nil {
			return err
		}
	}

	ctx := interp.NewContext(module, strategy, pm, "  ")
	ctx.SetTraceTargetPolicy(opts.TraceTargetPolicy)
	in := interp.New(module, ctx)

	out, err := in.GenerateTemplate(opts.MainTemplate, models, nil)
	if err != nil {
		return err
	}
	fmt.Fprint(outW, out)
	return nil
}

// prescanProtectedAreas implements §4.8's "when outputs are regenerated,
// C3 pre-scans existing files": every regular file already present under
// root is scanned for protected regions before generation writes anything,
// so a File statement that recreates a previously generated path preserves
// whatever the user hand-edited inside its markers regardless of how that
// path was computed (protected-area records are keyed by id, not by file,
// so this does not require knowing a File statement's url in advance).
func prescanProtectedAreas(pm *protectedarea.Manager, root string) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		return pm.ScanFile(path)
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to pre-scan %s for protected regions: %w", root, err)
	}
	return nil
}
