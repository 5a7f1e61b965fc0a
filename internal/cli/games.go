package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessmatch/internal/api/response"
	"github.com/mcoot/chessmatch/internal/model"
)

func newGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Game history commands",
	}

	cmd.AddCommand(newGamesListCmd())
	cmd.AddCommand(newGamesGetCmd())
	cmd.AddCommand(newGamesActiveCmd())

	return cmd
}

func newGamesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your finished games, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameList

			if err := client.Get(cmd.Context(), "/api/v1/games", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGamesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a finished game with its moves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.GameRecord

			if err := client.Get(cmd.Context(), "/api/v1/games/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGamesActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the game you are currently in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SessionView

			if err := client.Get(cmd.Context(), "/api/v1/games/active", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
