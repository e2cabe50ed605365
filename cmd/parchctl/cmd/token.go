package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenMintURL string
	tokenUserID  string
	tokenTTL     time.Duration
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token from the token mint service",
	Long: `Mint a JWT for a publishing user against the token mint service.
The returned token can be passed via --token or the JWT_TOKEN env var.

Example:
  parchctl token --user 4b336fa0-5c26-4d9d-b2ba-2b0c14533fd2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: timeout}

		body, err := json.Marshal(map[string]any{
			"user_id":     tokenUserID,
			"ttl_seconds": int(tokenTTL.Seconds()),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		resp, err := client.Post(strings.TrimSuffix(tokenMintURL, "/")+"/token", "application/json", strings.NewReader(string(body)))
		if err != nil {
			return fmt.Errorf("token request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("token request rejected (HTTP %d): %s", resp.StatusCode, readBody(resp))
		}

		var out struct {
			Token     string `json:"token"`
			ExpiresIn int    `json:"expires_in"`
			TokenType string `json:"token_type"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode token response: %w", err)
		}

		if outputJSON {
			printOutput(out)
		} else {
			fmt.Println(out.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Token expires in %ds\n", out.ExpiresIn)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenMintURL, "mint-url", "http://localhost:8082", "token mint base URL")
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "publishing user id, a uuid (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("user")
}
