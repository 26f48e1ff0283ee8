package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/drawio-builder/pkg/config"
	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/pipeline"
	"github.com/matzehuels/drawio-builder/pkg/render"
	"github.com/matzehuels/drawio-builder/pkg/source"
)

// buildOpts holds the command-line flags shared by build and plan.
type buildOpts struct {
	input      string // diagram directory or single diagram file
	output     string // artifact directory
	config     string // override file (toml, yaml or json)
	buildArgs  string // draw.io export flags
	drawio     string // draw.io binary hint
	draft      bool   // export at scale 1
	recursive  bool   // search subdirectories
	force      bool   // ignore freshness
	jobs       int    // diagrams built in parallel
	noProgress bool   // disable the live progress line
}

func defaultBuildOpts() buildOpts {
	return buildOpts{
		input:     defaultInput,
		output:    defaultOutput,
		buildArgs: render.DefaultBuildArgs,
	}
}

// addInputFlags registers the flags that decide what gets planned.
func addInputFlags(cmd *cobra.Command, opts *buildOpts) {
	cmd.Flags().StringVarP(&opts.input, "input", "i", opts.input, "diagram directory or file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output directory")
	cmd.Flags().StringVarP(&opts.config, "config", "c", opts.config, "override file (.toml, .yaml, .json)")
	cmd.Flags().StringVar(&opts.buildArgs, "build-args", opts.buildArgs, "export flags passed to draw.io")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", opts.recursive, "search subdirectories for diagrams")
	cmd.Flags().BoolVar(&opts.force, "force", opts.force, "rebuild every step regardless of timestamps")
	registerInputCompletions(cmd)
}

// inputs is what a build operates on, resolved from flags.
type inputs struct {
	diagrams  []source.Diagram
	overrides *config.Overrides
	flags     []string
	options   pipeline.Options
}

// loadInputs parses the export flags, loads the override file and discovers
// the diagrams. Every error it returns is fatal for the run.
func loadInputs(opts *buildOpts) (*inputs, error) {
	flags, err := render.ParseFlags(opts.buildArgs, opts.draft)
	if err != nil {
		return nil, err
	}
	overrides, err := config.Load(opts.config)
	if err != nil {
		return nil, err
	}
	diagrams, err := source.Discover(opts.input, opts.recursive)
	if err != nil {
		return nil, err
	}
	in := &inputs{
		diagrams:  diagrams,
		overrides: overrides,
		flags:     flags,
		options: pipeline.Options{
			OutputDir: opts.output,
			Extension: render.FormatOf(flags),
			Force:     opts.force,
			Jobs:      opts.jobs,
		},
	}
	if err := in.options.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return in, nil
}

// buildCommand creates the build command that renders stale export steps.
func (c *CLI) buildCommand() *cobra.Command {
	opts := defaultBuildOpts()

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Export the layers of every diagram as images",
		Long: `Export the layers of every diagram as images.

By default each diagram with layers L1..Ln yields n images: the first shows
L1, the second L1 and L2, and so on. Images are named <diagram>-<step>.<ext>
and placed in the output directory, mirroring the input tree.

An image is only rebuilt when it is missing or older than its diagram. Use
--force to rebuild everything.

An override file replaces the default sequence for selected diagrams:

  [[diagrams]]
  name = "architecture.drawio"
  steps = [
    { name = "base", layers = ["Network"] },
    { name = "full", layers = ["Network", "Services"] },
  ]

The draw.io background layer ("Background" until renamed) is never exported
on its own; rename it to include it.

When a step fails, the remaining steps and diagrams still build. Details of
every failure are written to ` + pipeline.ErrorLogName + ` in the output
directory and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), &opts)
		},
	}

	addInputFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.drawio, "drawio", "", "path to the draw.io binary (default: search well-known locations)")
	_ = cmd.MarkFlagFilename("drawio")
	cmd.Flags().BoolVar(&opts.draft, "draft", false, "export at scale 1 for faster builds")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "diagrams built in parallel (default: number of CPUs)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress display")

	return cmd
}

// runBuild renders every stale step and reports the outcome.
func (c *CLI) runBuild(ctx context.Context, opts *buildOpts) error {
	logger := loggerFromContext(ctx)

	in, err := loadInputs(opts)
	if err != nil {
		return err
	}
	if len(in.diagrams) == 0 {
		printWarning("No diagrams found in %s", opts.input)
		return nil
	}
	if in.overrides.Len() > 0 {
		logger.Debug("loaded overrides", "file", in.overrides.Path(), "diagrams", in.overrides.Len())
	}

	binary, err := render.Locate(opts.drawio)
	if err != nil {
		return err
	}
	logger.Debug("using drawio", "binary", binary, "flags", in.flags)

	runner := pipeline.NewRunner(render.NewDrawio(binary, in.flags), in.overrides, logger)

	var ui *progressUI
	release := func() {}
	if !opts.noProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		ui = startProgress(len(in.diagrams), os.Stderr)
		runner.Hooks = ui
		release = holdLogs(logger, c.logOutput())
		if !c.verbose() {
			level := logger.GetLevel()
			logger.SetLevel(log.WarnLevel)
			defer logger.SetLevel(level)
		}
	}

	report, err := runner.Execute(ctx, in.diagrams, in.options)
	if ui != nil {
		ui.Stop()
	}
	release()
	if err != nil {
		return err
	}

	printSummary(report)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !report.Failed() {
		return nil
	}

	logPath := filepath.Join(in.options.OutputDir, pipeline.ErrorLogName)
	if err := writeErrorLog(logPath, report); err != nil {
		logger.Error("could not write error log", "path", logPath, "err", err)
		return report.Err()
	}
	printInfo("Error log written")
	printFile(logPath)
	return errors.New(errors.ErrCodeBuildFailed, "%s (details in %s)", errors.UserMessage(report.Err()), logPath)
}

func writeErrorLog(path string, report *pipeline.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteLog(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
