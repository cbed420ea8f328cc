package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spritepipe/pkg/recipe"
	"github.com/matzehuels/spritepipe/pkg/storage"
)

// storeOpts selects the store to inspect: a recipe's [output] table, adjusted
// by the output flags.
type storeOpts struct {
	output outputFlags
	recipe string
}

func (o *storeOpts) register(cmd *cobra.Command) {
	o.output.register(cmd)
	cmd.Flags().StringVarP(&o.recipe, "recipe", "r", "", "read the store settings from this recipe")
}

func (o *storeOpts) open(ctx context.Context) (storage.Store, *recipe.Config, error) {
	cfg := &recipe.Config{}
	if o.recipe != "" {
		loaded, err := recipe.Load(o.recipe)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if err := o.output.apply(cfg); err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(ctx, cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Output.Backend, err)
	}
	return store, cfg, nil
}

// storeCommand creates the store management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect exported artifacts",
	}

	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeClearCommand())

	return cmd
}

// storeListCommand creates the "store list" subcommand.
func (c *CLI) storeListCommand() *cobra.Command {
	var opts storeOpts
	cmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List stored keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := store.Keys(cmd.Context(), prefixArg(args))
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				printInfo("Store is empty")
				return nil
			}
			for _, key := range keys {
				printFile(key)
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// storeClearCommand creates the "store clear" subcommand.
func (c *CLI) storeClearCommand() *cobra.Command {
	var opts storeOpts
	cmd := &cobra.Command{
		Use:   "clear [prefix]",
		Short: "Delete stored keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := store.Keys(cmd.Context(), prefixArg(args))
			if err != nil {
				return err
			}
			for _, key := range keys {
				if err := store.Delete(cmd.Context(), key); err != nil {
					return err
				}
				c.Logger.Debug("deleted", "key", key)
			}
			printSuccess("Cleared %d stored entries", len(keys))
			printDetail("Backend: %s", cfg.Output.Backend)
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func prefixArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
