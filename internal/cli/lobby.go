package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/chessmatch/internal/model"
)

func newLobbyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lobby",
		Short: "Show online users, the search queue and active penalties",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.LobbyState

			if err := client.Get(cmd.Context(), "/api/v1/lobby", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
