package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/pipeline"
	"github.com/matzehuels/spritepipe/pkg/recipe"
	"github.com/matzehuels/spritepipe/pkg/storage"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// validateCommand creates the validate command. It builds the graph without
// running it, so every node is created and every connection checked, but
// nothing is exported.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <recipe.toml>",
		Short: "Check a recipe and print its graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := recipe.Load(path)
			if err != nil {
				return err
			}
			g, err := cfg.Build(c.newRegistry(path, storage.NewNullStore(), stream.Immediate))
			if err != nil {
				return err
			}

			printNodes(g)
			printConnections(g)
			printStats(pipeline.Describe(g))
			if len(g.Sinks()) == 0 {
				printWarning("Recipe has no sinks; running it would do nothing")
				return nil
			}
			printSuccess("Recipe is valid")
			printNextStep("Run it", appName+" run "+path)
			return nil
		},
	}
}

func printNodes(g *graph.Graph) {
	rows := make([][]string, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		kind, _ := n.Meta()["kind"].(string)
		rows = append(rows, []string{
			string(n.ID()),
			kind,
			n.Name(),
			graph.KindOf(n).String(),
			linkNames(n.Inputs()),
			linkNames(n.Outputs()),
		})
	}
	printTable("Nodes", []string{"ID", "Kind", "Name", "Shape", "Inputs", "Outputs"}, rows)
}

func printConnections(g *graph.Graph) {
	rows := make([][]string, 0, g.ConnectionCount())
	for _, conn := range g.Connections() {
		rows = append(rows, []string{conn.Output().String(), conn.Input().String()})
	}
	printTable("Connections", []string{"From", "To"}, rows)
}

func linkNames[L graph.Link](links []L) string {
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.Name()
	}
	return strings.Join(names, ", ")
}
