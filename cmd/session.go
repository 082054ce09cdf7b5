package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/gatepass/internal/dashboard"
	"github.com/frahmantamala/gatepass/internal/gatepass"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			username, password, err := credentials(loginUsername, loginPassword)
			if err != nil {
				return err
			}
			landing := dashboard.NewLanding(app.Auth, app.Notifier, app.Navigator, app.Logger)
			_, err = landing.Login(ctx, username, password)
			return err
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the refresh token and forget the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			if err := app.Auth.Logout(ctx); err != nil {
				app.Logger.Warn("logout error", "error", err)
			}
			app.Navigator.Navigate(ctx, dashboard.RouteLanding)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			st, err := app.Auth.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !st.Authenticated {
				fmt.Fprintln(out, "not signed in")
				return nil
			}
			fmt.Fprintf(out, "signed in as %s (%s)\n", st.Role, dashboard.RouteFor(st.Role))
			fmt.Fprintf(out, "access token expires: %s\n", gatepass.FormatDateTime(st.ExpiresAt))
			if st.Expired(time.Now()) {
				if st.CanRefresh {
					fmt.Fprintln(out, "access token expired; it will be refreshed on the next request")
				} else {
					fmt.Fprintln(out, "access token expired; sign in again")
				}
			}
			return nil
		})
	},
}

// credentials prompts for whatever was not given as a flag.
func credentials(username, password string) (string, string, error) {
	in := bufio.NewReader(os.Stdin)
	var err error
	if username == "" {
		fmt.Print("Username: ")
		if username, err = in.ReadString('\n'); err != nil {
			return "", "", fmt.Errorf("read username: %w", err)
		}
	}
	if password == "" {
		fmt.Print("Password: ")
		if password, err = in.ReadString('\n'); err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
	}
	return strings.TrimSpace(username), strings.TrimRight(password, "\r\n"), nil
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (prompted when omitted)")
}
