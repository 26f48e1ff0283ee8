package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drawio-builder/pkg/errors"
	"github.com/matzehuels/drawio-builder/pkg/pipeline"
)

// planCommand creates the plan command, a dry run of build.
func (c *CLI) planCommand() *cobra.Command {
	opts := defaultBuildOpts()
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the export steps of every diagram without rendering",
		Long: `Show the export steps of every diagram without rendering.

For each step the plan lists the visible layers, the artifact path and
whether build would render it. Diagrams that cannot be planned (unreadable
files, unknown layers in the override file) are reported and make the command
exit non-zero. draw.io is not needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd.Context(), &opts, asJSON)
		},
	}

	addInputFlags(cmd, &opts)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plans as JSON")

	return cmd
}

// planEntry is the JSON form of one diagram's plan.
type planEntry struct {
	Diagram string          `json:"diagram"`
	Mode    string          `json:"mode,omitempty"`
	Steps   []planEntryStep `json:"steps,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type planEntryStep struct {
	Name     string   `json:"name"`
	Layers   []string `json:"layers"`
	Indexes  []int    `json:"indexes"`
	Artifact string   `json:"artifact"`
	Stale    bool     `json:"stale"`
	Reason   string   `json:"reason"`
}

// runPlan prepares every diagram and prints the result.
func (c *CLI) runPlan(ctx context.Context, opts *buildOpts, asJSON bool) error {
	in, err := loadInputs(opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(nil, in.overrides, loggerFromContext(ctx))

	jobs, errs := runner.PrepareAll(in.diagrams, in.options)

	entries := make([]planEntry, 0, len(in.diagrams))
	failed := 0
	for i, d := range in.diagrams {
		job, err := jobs[i], errs[i]
		if err != nil {
			failed++
			entries = append(entries, planEntry{Diagram: d.Key, Error: errors.UserMessage(err)})
			continue
		}
		e := planEntry{Diagram: d.Key, Mode: string(job.Plan.Mode)}
		for _, ps := range job.Steps {
			s := planEntryStep{
				Name:     ps.Step.Name,
				Layers:   ps.Step.Names(),
				Indexes:  ps.Step.Indexes(),
				Artifact: ps.Artifact,
				Stale:    ps.Freshness.Stale(),
				Reason:   string(ps.Freshness.Reason),
			}
			if ps.Err != nil {
				s.Reason = errors.UserMessage(ps.Err)
			}
			e.Steps = append(e.Steps, s)
		}
		entries = append(entries, e)
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return err
		}
	} else {
		printPlan(entries)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d diagrams cannot be planned", failed, len(entries))
	}
	return nil
}

func printPlan(entries []planEntry) {
	if len(entries) == 0 {
		printWarning("No diagrams found")
		return
	}

	var rows [][]string
	stale := 0
	for _, e := range entries {
		if e.Error != "" {
			continue
		}
		for _, s := range e.Steps {
			status := StyleSuccess.Render("fresh")
			if s.Stale {
				status = StyleWarning.Render("render") + StyleDim.Render(" ("+s.Reason+")")
				stale++
			}
			rows = append(rows, []string{e.Diagram, s.Name, strings.Join(s.Layers, ", "), s.Artifact, status})
		}
	}
	if len(rows) > 0 {
		printTable([]string{"Diagram", "Step", "Layers", "Artifact", "Status"}, rows)
	}

	for _, e := range entries {
		if e.Error != "" {
			printError("%s cannot be planned", e.Diagram)
			printDetail("%s", e.Error)
		}
	}
	printKeyValue("Diagrams", fmt.Sprint(len(entries)))
	printKeyValue("Steps", fmt.Sprint(len(rows)))
	printKeyValue("To render", fmt.Sprint(stale))
}
