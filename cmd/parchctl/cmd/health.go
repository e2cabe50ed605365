package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the Parchmail service",
	Long:  `Check the health status of the Parchmail service over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeRequest(http.MethodGet, "/healthz", nil)
		if err != nil {
			return fmt.Errorf("HTTP health check failed: %w", err)
		}
		defer resp.Body.Close()

		var status struct {
			OK      bool   `json:"ok"`
			Message string `json:"message"`
			Pending *int64 `json:"pending_deliveries"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&status)

		if outputJSON {
			printOutput(status)
			return nil
		}

		if resp.StatusCode == http.StatusOK && status.OK {
			fmt.Println("✓ Service is healthy")
			if status.Pending != nil {
				fmt.Printf("  Pending deliveries: %d\n", *status.Pending)
			}
		} else {
			fmt.Printf("✗ Service is unhealthy (HTTP %d): %s\n", resp.StatusCode, status.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
