// Package cli implements the drawio-builder command-line interface.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/drawio-builder/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "drawio-builder"

	// defaultInput is the default directory searched for diagrams.
	defaultInput = "./"

	// defaultOutput is the default directory receiving artifacts.
	defaultOutput = "./out"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	logOut io.Writer // writer the logger was created with
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), logOut: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// logOutput returns the writer the logger was created with.
func (c *CLI) logOutput() io.Writer {
	if c.logOut == nil {
		return os.Stderr
	}
	return c.logOut
}

// verbose reports whether debug logging is enabled.
func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "drawio-builder exports draw.io layers as incremental images",
		Long: `drawio-builder exports every draw.io diagram in a directory as a series of
images, one per layer, each showing that layer and all layers below it.

The images are meant for slides and documents that reveal a figure step by
step. Only images older than their diagram are rebuilt. An override file can
replace the default cumulative sequence with explicit layer sets per diagram.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.layersCommand())
	root.AddCommand(c.completionCommand())

	return root
}
