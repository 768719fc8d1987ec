package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sellhub/shopctl/internal/auth"
	"github.com/sellhub/shopctl/internal/output"
	"github.com/sellhub/shopctl/internal/tui"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Manage the admin session including login, logout, and status.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthRefreshCmd(),
		newAuthTokenCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long:  "Sign in against the backend and store the session in the system keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			if email == "" {
				email, err = tui.InputRequired("Email", "you@store.example")
				if err != nil {
					return output.ErrUsage("Login cancelled")
				}
			}
			if password == "" {
				password, err = tui.Password("Password")
				if err != nil {
					return output.ErrUsage("Login cancelled")
				}
			}
			email = strings.TrimSpace(email)

			identity, err := a.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			return a.OK(map[string]any{
				"user_id":  identity.UserID,
				"store_id": identity.StoreID,
				"role":     identity.Role,
			}, output.WithSummary(fmt.Sprintf("Signed in as %s (store %s)", email, identity.StoreID)))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted; prefer the prompt)")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}
			if err := a.Auth.Logout(); err != nil {
				return fmt.Errorf("removing credentials: %w", err)
			}
			return a.OK(nil, output.WithSummary("Signed out"))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			creds := a.Creds.Load()
			if creds == nil {
				return output.ErrAuth("Not authenticated")
			}

			return a.OK(map[string]any{
				"user_id":      creds.Identity.UserID,
				"store_id":     creds.Identity.StoreID,
				"branch_id":    creds.Identity.BranchID,
				"role":         creds.Identity.Role,
				"access_token": auth.MaskToken(creds.AccessToken),
				"keyring":      a.Creds.UsingKeyring(),
			}, output.WithSummary("Authenticated"))
		},
	}
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh",
		Long:  "Exchange the stored refresh token for a new access token. A failed refresh signs you out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}
			if !a.Auth.Refresh(cmd.Context()) {
				return output.ErrAuth("Refresh failed, session cleared")
			}
			return a.OK(nil, output.WithSummary("Token refreshed"))
		},
	}
}

func newAuthTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the current access token",
		Long:  "Print the raw access token for use with curl or other tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}
			creds := a.Creds.Load()
			if creds == nil {
				return output.ErrAuth("Not authenticated")
			}
			fmt.Fprintln(cmd.OutOrStdout(), creds.AccessToken)
			return nil
		},
	}
}
