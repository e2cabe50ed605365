package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	subscribeEmail string
	subscribeName  string
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Add a newsletter subscriber",
	Long: `Add a new subscriber in pending state. The subscription must be
confirmed before the subscriber receives any issues.

Example:
  parchctl subscribe --email le.guin@example.com --name "Ursula"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		form := url.Values{
			"email": {subscribeEmail},
			"name":  {subscribeName},
		}

		resp, err := makeFormRequest("/subscriptions", form)
		if err != nil {
			return fmt.Errorf("subscribe request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("subscribe rejected (HTTP %d): %s", resp.StatusCode, readBody(resp))
		}

		if outputJSON {
			printOutput(map[string]string{"status": "pending_confirmation", "email": subscribeEmail})
		} else {
			fmt.Printf("✓ Subscriber %s stored (pending confirmation)\n", subscribeEmail)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subscribeCmd)

	subscribeCmd.Flags().StringVar(&subscribeEmail, "email", "", "subscriber email (required)")
	subscribeCmd.Flags().StringVar(&subscribeName, "name", "", "subscriber name (required)")
	subscribeCmd.MarkFlagRequired("email")
	subscribeCmd.MarkFlagRequired("name")
}
