package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessmatch/internal/api/response"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account and profile commands",
	}

	cmd.AddCommand(newUserRegisterCmd())
	cmd.AddCommand(newUserLoginCmd())
	cmd.AddCommand(newUserLogoutCmd())
	cmd.AddCommand(newUserMeCmd())
	cmd.AddCommand(newUserGetCmd())
	cmd.AddCommand(newUserListCmd())

	return cmd
}

func newUserRegisterCmd() *cobra.Command {
	var user, pass string
	var rating int

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := map[string]any{
				"username": user,
				"password": pass,
			}
			if rating != 0 {
				req["rating"] = rating
			}
			var result response.AuthResponse

			if err := client.Post(cmd.Context(), "/api/v1/users/register", req, &result); err != nil {
				return err
			}

			return saveSession(result)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().IntVar(&rating, "rating", 0, "Starting rating (600-2000, default 1200)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newUserLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := map[string]string{
				"username": user,
				"password": pass,
			}
			var result response.AuthResponse

			if err := client.Post(cmd.Context(), "/api/v1/users/login", req, &result); err != nil {
				return err
			}

			return saveSession(result)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func saveSession(result response.AuthResponse) error {
	if err := cfg.SaveToken(result.SessionToken); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	client.SetToken(result.SessionToken)

	out := NewOutput(cfg.Output)
	out.Print(result)
	return nil
}

func newUserLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(cmd.Context(), "/api/v1/users/logout", nil, nil); err != nil {
				return err
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Logged out")
			return nil
		},
	}
}

func newUserMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User

			if err := client.Get(cmd.Context(), "/api/v1/users/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <username>",
		Short: "Show a user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User

			if err := client.Get(cmd.Context(), "/api/v1/users/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.UserList

			if err := client.Get(cmd.Context(), "/api/v1/users", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
