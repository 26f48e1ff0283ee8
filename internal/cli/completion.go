package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drawio-builder/pkg/config"
	"github.com/matzehuels/drawio-builder/pkg/source"
)

// configExtensions are the override file extensions config.Load accepts.
var configExtensions = []string{string(config.FormatTOML), string(config.FormatYAML), "yml", string(config.FormatJSON)}

// diagramExtensions returns source.Extensions without the leading dot, the
// form shell completion filters take.
func diagramExtensions() []string {
	out := make([]string, len(source.Extensions))
	for i, ext := range source.Extensions {
		out[i] = strings.TrimPrefix(ext, ".")
	}
	return out
}

// completeDiagramFile completes the single FILE argument of layers with
// diagram files.
func completeDiagramFile(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return diagramExtensions(), cobra.ShellCompDirectiveFilterFileExt
}

// registerInputCompletions attaches file completion to the flags that
// addInputFlags registers.
func registerInputCompletions(cmd *cobra.Command) {
	_ = cmd.MarkFlagFilename("input", diagramExtensions()...)
	_ = cmd.MarkFlagDirname("output")
	_ = cmd.MarkFlagFilename("config", configExtensions...)
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ` + appName + `.

The scripts complete diagram files (` + strings.Join(source.Extensions, ", ") + `) for
--input and the layers command, and override files for --config.

Bash:
  $ source <(` + appName + ` completion bash)

Zsh:
  $ ` + appName + ` completion zsh > "${fpath[1]}/_` + appName + `"

Fish:
  $ ` + appName + ` completion fish > ~/.config/fish/completions/` + appName + `.fish

PowerShell:
  PS> ` + appName + ` completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}
}
