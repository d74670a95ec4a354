package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running engine",
	Long: `Queries a running engine's ops API and prints the cycle
state, the bankroll ledger, and the circuit breaker status.`,
	RunE: runStatus,
}

//nolint:gochecknoglobals // Cobra boilerplate
var statusAddr string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusAddr, "addr", "a", "http://localhost:8080", "Engine base URL")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	sections := []struct {
		title string
		path  string
	}{
		{"Cycle", "/api/state"},
		{"Ledger", "/api/ledger"},
		{"Circuit breaker", "/api/breaker"},
	}

	for _, s := range sections {
		body, err := fetchJSON(client, statusAddr+s.path)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", s.path, err)
		}
		fmt.Printf("%s:\n%s\n", s.title, body)
	}

	return nil
}

func fetchJSON(client *http.Client, url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}

	return indentJSON(data)
}

// indentJSON re-indents a compact JSON payload for terminal output.
func indentJSON(data []byte) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("parse body: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
