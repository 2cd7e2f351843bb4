package commands

import (
	"fmt"
	"strings"

	"github.com/buildbuddy/engine/internal/api/types"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := apiClient.Login(cmd.Context(), types.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			settings.Set(keyToken, tok.AccessToken)
			if err := saveSettings(); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", tok.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the wizard session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := apiClient.Logout(cmd.Context()); err != nil {
				return err
			}
			settings.Set(keyToken, "")
			if err := saveSettings(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	var req types.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Email = strings.TrimSpace(req.Email)
			u, err := apiClient.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, run `buildbuddy login` next\n", u.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password (8+ characters)")
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
