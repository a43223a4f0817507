package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckURL     string
	healthcheckTimeout time.Duration
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check the health of a running server",
	Long: `Check the health of a running Stays server.

Exit codes:
  0 - healthy
  1 - unhealthy (server responded but a check failed)
  2 - unreachable (could not connect)`,
	Run: func(cmd *cobra.Command, args []string) {
		client := &http.Client{Timeout: healthcheckTimeout}

		resp, err := client.Get(healthcheckURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unreachable: %v\n", err)
			os.Exit(2)
		}
		defer resp.Body.Close()

		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			fmt.Fprintf(os.Stderr, "bad response: %v\n", err)
			os.Exit(1)
		}

		if resp.StatusCode != http.StatusOK {
			fmt.Printf("unhealthy: %s (HTTP %d)\n", body.Status, resp.StatusCode)
			os.Exit(1)
		}

		fmt.Printf("healthy: %s\n", body.Status)
	},
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "http://localhost:8080/api/v1/health", "health endpoint URL")
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 5*time.Second, "request timeout")
}
