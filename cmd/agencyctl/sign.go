package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/temmyjay001/agency-service/internal/relay"
)

// newSignCmd prints the headers an n8n workflow must send to /webhooks/n8n.
func newSignCmd() *cobra.Command {
	var (
		body      string
		secret    string
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a /webhooks/n8n callback body with the shared secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = envOr("N8N_SHARED_SECRET", "")
			}
			if secret == "" {
				return errors.New("--secret or N8N_SHARED_SECRET is required")
			}

			payload := []byte(body)
			if !cmd.Flags().Changed("body") {
				var err error
				if payload, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("failed to read body: %w", err)
				}
			}

			if timestamp == 0 {
				timestamp = time.Now().Unix()
			}
			ts := strconv.FormatInt(timestamp, 10)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", relay.HeaderTimestamp, ts)
			fmt.Fprintf(out, "%s: %s\n", relay.HeaderSignature, relay.SignCallback(secret, ts, payload))
			return nil
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "exact request body (read from stdin when omitted)")
	cmd.Flags().StringVar(&secret, "secret", "", "shared secret (defaults to N8N_SHARED_SECRET)")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "unix timestamp to sign (defaults to now)")

	return cmd
}
