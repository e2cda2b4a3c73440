package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create an account with --email and --password and print the session token.

Example:
  pantryctl register --email cook@example.com --password s3cret!`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b *Backend, out *OutputFormatter) error {
				session, err := b.Identity.Register(ctx, opts.Email, opts.Password)
				if err != nil {
					return err
				}
				out.VerboseLog("registered user %s", session.UserID)

				return out.Success(SessionView{
					UserID:    session.UserID,
					Email:     session.Email,
					Token:     session.Token,
					ExpiresAt: session.ExpiresAt,
				}, fmt.Sprintf("registered %s\n", session.Email))
			})
		},
	}
}
