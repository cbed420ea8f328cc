package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/spritepipe/pkg/storage"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// kindsCommand lists the node kinds available to recipes.
func (c *CLI) kindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List node kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := c.newRegistry(".", storage.NewNullStore(), stream.Immediate)
			kinds := reg.Kinds()
			rows := make([][]string, len(kinds))
			for i, k := range kinds {
				rows[i] = []string{k.Tag, k.Description}
			}
			printTable("Node kinds", []string{"Kind", "Description"}, rows)
			return nil
		},
	}
}
