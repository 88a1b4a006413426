package commands

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/todoms/internal/validation"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Account email")
	cmd.Flags().StringVar(&f.password, "password", "", "Account password (read from input when omitted)")
}

// prompt fills missing fields from the command input
func (f *credentialFlags) prompt(cmd *cobra.Command, in *bufio.Reader) error {
	var err error
	if f.email == "" {
		if f.email, err = readLine(cmd, in, "Email: "); err != nil {
			return err
		}
	}
	if f.password == "" {
		if f.password, err = readLine(cmd, in, "Password: "); err != nil {
			return err
		}
	}
	return nil
}

// NewSignupCmd creates the signup command
func NewSignupCmd(opts *rootOptions) *cobra.Command {
	var creds credentialFlags
	var confirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if err := creds.prompt(cmd, in); err != nil {
				return err
			}
			if confirm == "" {
				var err error
				if confirm, err = readLine(cmd, in, "Confirm password: "); err != nil {
					return err
				}
			}
			if err := validation.ValidateSignupForm(creds.email, creds.password, confirm); err != nil {
				return err
			}

			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Signup(cmd.Context(), creds.email, creds.password); err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up and logged in as %s\n", userLabel(a.session.User()))
			return nil
		},
	}

	creds.register(cmd)
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (read from input when omitted)")
	return cmd
}

// NewLoginCmd creates the login command
func NewLoginCmd(opts *rootOptions) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := creds.prompt(cmd, bufio.NewReader(cmd.InOrStdin())); err != nil {
				return err
			}

			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Login(cmd.Context(), creds.email, creds.password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", userLabel(a.session.User()))
			return nil
		},
	}

	creds.register(cmd)
	return cmd
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			u := a.session.User()
			if u == nil {
				return errNotLoggedIn
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
}

// NewRefreshCmd creates the refresh command
func NewRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Tokens refreshed")
			return nil
		},
	}
}
