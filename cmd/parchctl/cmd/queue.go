package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the delivery queue depth",
	Long:  `Show the number of pending deliveries in the delivery queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeRequest(http.MethodGet, "/admin/queue", nil)
		if err != nil {
			return fmt.Errorf("queue request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("queue request rejected (HTTP %d): %s", resp.StatusCode, readBody(resp))
		}

		var out struct {
			Pending int64 `json:"pending_deliveries"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode queue response: %w", err)
		}

		if outputJSON {
			printOutput(map[string]int64{"pending_deliveries": out.Pending})
		} else {
			fmt.Printf("Pending deliveries: %d\n", out.Pending)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
}
