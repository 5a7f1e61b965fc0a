package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessmatch/internal/api/response"
)

const healthPollInterval = 200 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check server health.

With --wait, keep polling until the server answers or the wait expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := checkHealth(cmd.Context(), client, wait)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long")

	return cmd
}

func checkHealth(ctx context.Context, c *Client, wait time.Duration) (response.Health, error) {
	var result response.Health
	deadline := time.Now().Add(wait)

	for {
		err := c.Get(ctx, "/api/v1/health", &result)
		if err == nil {
			return result, nil
		}
		if !time.Now().Add(healthPollInterval).Before(deadline) {
			if wait > 0 {
				return result, fmt.Errorf("server not healthy after %s: %w", wait, err)
			}
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
}
