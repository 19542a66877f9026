package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbweber/lvnode/internal/api"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long: `Issue an HS256 bearer token for the HTTP API, signed with
server.jwt_secret from the configuration file.

Example:
  curl -H "Authorization: Bearer $(lvnode token --subject ci)" localhost:8080/api/v1/nodes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Server.JWTSecret == "" {
			return errors.New("server.jwt_secret is not set")
		}

		ttl := cfg.Server.TokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}

		token, err := api.IssueToken([]byte(cfg.Server.JWTSecret), tokenSubject, ttl)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "lvnode", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default server.token_ttl)")
}
