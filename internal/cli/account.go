package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type DeleteAccountOptions struct {
	*RootOptions
	Yes bool
}

func NewDeleteAccountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteAccountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the account and every inventory record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				_ = formatter(opts.RootOptions, cmd).Error("confirmation_required", "pass --yes to delete the account", nil)
				return NewExitError(ExitCommandError, "confirmation required")
			}

			return withBackend(cmd, opts.RootOptions, func(ctx context.Context, b *Backend, out *OutputFormatter) error {
				t, err := tracker(ctx, b, opts.RootOptions)
				if err != nil {
					return err
				}
				session := t.Session()
				if err := b.Synchronizer.DeleteAccount(ctx, session); err != nil {
					return err
				}
				return out.Success(map[string]string{"user_id": session.UserID, "email": session.Email},
					fmt.Sprintf("deleted account %s\n", session.Email))
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "confirm deletion")

	return cmd
}
