package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/layer-3/wellness/core"
)

const envPassword = "WELLNESS_PASSWORD"

var (
	password string
	username string
)

var loginCmd = &cobra.Command{
	Use:   "login <email-or-username>",
	Short: "Sign in and keep the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		identity, err := app.Session.Login(cmd.Context(), args[0], passwordValue())
		if err != nil {
			if errors.Is(err, core.ErrInvalidCredentials) {
				return errors.New("invalid email, username or password")
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", identity.Username, identity.Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		identity, err := app.Session.Register(cmd.Context(), core.RegisterRequest{
			Email:    args[0],
			Username: username,
			Password: passwordValue(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", identity.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		app.Session.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		identity := app.Session.Identity()
		if identity == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
			return nil
		}
		return printJSON(cmd, identity)
	},
}

func passwordValue() string {
	if password != "" {
		return password
	}
	return os.Getenv(envPassword)
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&password, "password", "p", "", "Password (defaults to $"+envPassword+")")
	}
	registerCmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	registerCmd.MarkFlagRequired("username")
}
