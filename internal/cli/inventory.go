package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the current inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b *Backend, out *OutputFormatter) error {
				t, err := tracker(ctx, b, opts)
				if err != nil {
					return err
				}
				if err := t.Refresh(ctx); err != nil {
					return err
				}
				return out.Inventory(t.View())
			})
		},
	}
}

func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>...",
		Short: "Add one unit of each named item",
		Long: `Add one unit of each named item. Repeating a name adds it again.

Example:
  pantryctl add eggs eggs flour`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b *Backend, out *OutputFormatter) error {
				t, err := tracker(ctx, b, opts)
				if err != nil {
					return err
				}
				for _, name := range args {
					if err := t.Add(ctx, name); err != nil {
						return err
					}
					out.VerboseLog("added %s", name)
				}
				return out.Inventory(t.View())
			})
		},
	}
}

type RemoveOptions struct {
	*RootOptions
	Amount int
}

func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Take units of an item, deleting it when none remain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts.RootOptions, func(ctx context.Context, b *Backend, out *OutputFormatter) error {
				t, err := tracker(ctx, b, opts.RootOptions)
				if err != nil {
					return err
				}
				if err := t.Remove(ctx, args[0], opts.Amount); err != nil {
					return err
				}
				return out.Inventory(t.View())
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Amount, "amount", "n", 1, "units to remove")

	return cmd
}
