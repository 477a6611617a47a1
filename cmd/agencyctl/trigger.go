package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/temmyjay001/agency-service/internal/relay"
)

func newTriggerCmd() *cobra.Command {
	var (
		data    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "trigger <action>",
		Short: "Send a signed action to the automation engine",
		Example: `  agencyctl trigger lead.intake --data '{"name":"Ada","email":"ada@example.com"}'
  agencyctl trigger system.health`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{}
			if data != "" {
				if err := json.Unmarshal([]byte(data), &payload); err != nil {
					return fmt.Errorf("--data must be a JSON object: %w", err)
				}
			}
			if _, ok := payload["requestId"]; !ok {
				payload["requestId"] = uuid.NewString()
			}

			client := relay.NewClient(relay.Config{
				BaseURL:     os.Getenv("N8N_BASE_URL"),
				WebhookPath: os.Getenv("N8N_WEBHOOK_PATH"),
				Secret:      os.Getenv("N8N_SHARED_SECRET"),
				Timeout:     timeout,
			})

			result := client.Trigger(cmd.Context(), args[0], payload)

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(result); err != nil {
				return err
			}

			if !result.Success {
				return fmt.Errorf("trigger failed: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "JSON object merged into the request body")
	cmd.Flags().DurationVar(&timeout, "timeout", relay.DefaultTimeout, "request timeout")

	return cmd
}

