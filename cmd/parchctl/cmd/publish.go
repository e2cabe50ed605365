package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	publishTitle    string
	publishText     string
	publishTextFile string
	publishHTML     string
	publishHTMLFile string
	publishKey      string
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a newsletter issue to all confirmed subscribers",
	Long: `Publish a newsletter issue. The issue content is sent to the admin
endpoint together with an idempotency key; retrying with the same key is
safe and replays the original response instead of publishing twice.

Examples:
  parchctl publish --title "Issue #1" --text "plain body" --html "<p>body</p>"
  parchctl publish --title "Issue #1" --text-file body.txt --html-file body.html --key issue-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := contentFrom(publishText, publishTextFile)
		if err != nil {
			return fmt.Errorf("text content: %w", err)
		}
		html, err := contentFrom(publishHTML, publishHTMLFile)
		if err != nil {
			return fmt.Errorf("html content: %w", err)
		}

		key := publishKey
		if key == "" {
			// Fresh key per invocation; pass --key to make retries idempotent.
			key = uuid.New().String()
		}

		form := url.Values{
			"title":           {publishTitle},
			"text_content":    {text},
			"html_content":    {html},
			"idempotency_key": {key},
		}

		resp, err := makeFormRequest("/admin/newsletters", form)
		if err != nil {
			return fmt.Errorf("publish request failed: %w", err)
		}
		defer resp.Body.Close()

		body := readBody(resp)
		if resp.StatusCode != http.StatusSeeOther {
			return fmt.Errorf("publish rejected (HTTP %d): %s", resp.StatusCode, body)
		}

		if outputJSON {
			printOutput(map[string]string{
				"status":          "accepted",
				"idempotency_key": key,
				"message":         body,
			})
		} else {
			fmt.Println("✓ Issue accepted for delivery")
			fmt.Printf("  Idempotency key: %s\n", key)
			fmt.Printf("  %s\n", body)
		}
		return nil
	},
}

// contentFrom returns inline content or the contents of a file, exactly one
// of which must be set.
func contentFrom(inline, file string) (string, error) {
	switch {
	case inline != "" && file != "":
		return "", fmt.Errorf("set either the inline flag or the file flag, not both")
	case inline != "":
		return inline, nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("content is required")
	}
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishTitle, "title", "", "issue title (required)")
	publishCmd.Flags().StringVar(&publishText, "text", "", "plain text body")
	publishCmd.Flags().StringVar(&publishTextFile, "text-file", "", "file containing the plain text body")
	publishCmd.Flags().StringVar(&publishHTML, "html", "", "HTML body")
	publishCmd.Flags().StringVar(&publishHTMLFile, "html-file", "", "file containing the HTML body")
	publishCmd.Flags().StringVar(&publishKey, "key", "", "idempotency key (defaults to a fresh uuid)")

	publishCmd.MarkFlagRequired("title")
}
