package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drawio-builder/pkg/manifest"
)

// layersCommand creates the layers command that lists a diagram's layers.
func (c *CLI) layersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layers FILE",
		Short: "List the layers of a diagram",
		Long: `List the layers of a diagram in declaration order.

The index column is the native layer index passed to draw.io; the names are
what override files refer to. Only the first page of a diagram is read.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDiagramFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayers(args[0])
		},
	}
}

func runLayers(path string) error {
	m, err := manifest.Read(path)
	if err != nil {
		return err
	}

	title := path
	if m.Page != "" {
		title = fmt.Sprintf("%s (page %q)", path, m.Page)
	}
	fmt.Fprintln(stdout, StyleTitle.Render(title))

	all := append([]manifest.Layer(nil), m.Layers...)
	if m.Background != nil {
		all = append(all, *m.Background)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })

	rows := make([][]string, len(all))
	for i, l := range all {
		name := l.Name
		if m.Background != nil && l.ID == m.Background.ID {
			name = StyleDim.Render("background")
		}
		rows[i] = []string{strconv.Itoa(l.Index), l.ID, name}
	}
	printTable([]string{"Index", "ID", "Name"}, rows)

	if m.Len() == 0 {
		printWarning("Only the background layer exists; it is exported as a single image")
	} else if m.Background != nil {
		printDetail("The background layer is never exported on its own; rename it to include it")
	}
	printNewline()
	printSuccess("%d exportable layers", m.Len())
	return nil
}
