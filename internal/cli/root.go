package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rl1809/pantry-sync/internal/core/service"
	"github.com/rl1809/pantry-sync/internal/port"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Email    string
	Password string

	open BackendOpener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Backend is what a command needs to talk to the inventory.
type Backend struct {
	Synchronizer *service.Synchronizer
	Identity     port.IdentityProvider
	Close        func(context.Context)
}

// BackendOpener builds a Backend for one command invocation.
type BackendOpener func(ctx context.Context, opts *RootOptions) (*Backend, error)

// NewRootCommand creates the root command for pantryctl.
func NewRootCommand(open BackendOpener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "pantryctl",
		Short: "pantryctl - manage a pantry inventory",
		Long:  "Command line client for the pantry inventory: register, sign in, and keep item counts in sync.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintf(cmd.ErrOrStderr(), "Error [invalid_flag]: %s\n", msg)
				return NewExitError(ExitCommandError, msg)
			}
			if opts.Email == "" {
				opts.Email = os.Getenv("PANTRY_EMAIL")
			}
			if opts.Password == "" {
				opts.Password = os.Getenv("PANTRY_PASSWORD")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Email, "email", "", "account email (or PANTRY_EMAIL)")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "account password (or PANTRY_PASSWORD)")

	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewDeleteAccountCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// withBackend opens the backend, runs fn and closes the backend. Errors
// from fn are rendered through the formatter and returned as ExitErrors.
func withBackend(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, b *Backend, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := formatter(opts, cmd)

	backend, err := opts.open(ctx, opts)
	if err != nil {
		_ = out.Error("backend_unavailable", err.Error(), nil)
		return WrapExitError(ExitCommandError, "open backend", err)
	}
	defer backend.Close(ctx)

	if err := fn(ctx, backend, out); err != nil {
		_ = out.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, cmd.Name()+" failed", err)
	}
	return nil
}

// tracker signs in with the global credentials.
func tracker(ctx context.Context, b *Backend, opts *RootOptions) (*service.Tracker, error) {
	session, err := b.Identity.SignIn(ctx, opts.Email, opts.Password)
	if err != nil {
		return nil, err
	}
	return service.NewTracker(b.Synchronizer, session), nil
}
