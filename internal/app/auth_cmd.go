package app

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hitoshi/trainboard/internal/session"
)

func (c *cli) loginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google or with email and password",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "google",
		Short: "Sign in with a Google account in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.cfg.ValidateSignIn(true); err != nil {
				return err
			}
			return c.signIn(cmd.Context(), func(ctx context.Context, s *session.Store) error {
				return s.SignInGoogle(ctx)
			})
		},
	})

	var email, password string
	emailCmd := &cobra.Command{
		Use:   "email",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password.

When the auth service reports that the account does not exist, the account is
created with the same credentials. Projects with email enumeration protection
do not report missing accounts; use "trainboard signup" to create one there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.cfg.ValidateSignIn(false); err != nil {
				return err
			}
			pw, err := c.passwordOrPrompt(password)
			if err != nil {
				return err
			}
			return c.signIn(cmd.Context(), func(ctx context.Context, s *session.Store) error {
				return s.SignInEmailPassword(ctx, email, pw)
			})
		},
	}
	emailCmd.Flags().StringVar(&email, "email", "", "account email address")
	emailCmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	emailCmd.MarkFlagRequired("email")
	cmd.AddCommand(emailCmd)

	return cmd
}

func (c *cli) signupCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.cfg.ValidateSignIn(false); err != nil {
				return err
			}
			pw, err := c.passwordOrPrompt(password)
			if err != nil {
				return err
			}
			return c.signIn(cmd.Context(), func(ctx context.Context, s *session.Store) error {
				return s.SignUpEmailPassword(ctx, email, pw)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email address")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.app.Session(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.SignOut(cmd.Context()); err != nil {
				return c.printFailure(err.Error())
			}
			view := newIdentityView(nil)
			return c.printer().print(view, func(w io.Writer) { io.WriteString(w, "Logged out\n") })
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.app.Session(cmd.Context())
			if err != nil {
				return err
			}
			view := newIdentityView(store.Current())
			return c.printer().print(view, func(w io.Writer) { renderIdentity(w, view) })
		},
	}
}

// signIn はサインイン処理を実行し、成功時は挨拶を、失敗時は利用者向けメッセージを出力する。
func (c *cli) signIn(ctx context.Context, fn func(context.Context, *session.Store) error) error {
	store, err := c.app.Session(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, store); err != nil {
		return c.printFailure(err.Error())
	}
	view := newIdentityView(store.Current())
	return c.printer().print(view, func(w io.Writer) { renderIdentity(w, view) })
}

func (c *cli) passwordOrPrompt(password string) (string, error) {
	if password != "" {
		return password, nil
	}
	line, err := c.readLine("Password: ")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
