package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func setCmd() *cobra.Command {
	var (
		addr   string
		silent bool
	)

	cmd := &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Assign a tracker's value",
		Long: `Assign a tracker's value and notify its subscribers.

VALUE must be JSON; bare words are sent as JSON strings. With --silent the
value is stored without notifying anyone, which can leave observers out of
sync with the cached value.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := args[1]
			if !json.Valid([]byte(value)) {
				encoded, err := json.Marshal(value)
				if err != nil {
					return fmt.Errorf("encode value: %w", err)
				}
				value = string(encoded)
			}

			url := apiURL(addr, args[0])
			if silent {
				url += "?silent=true"
			}

			req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(value))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("daemon returned %s: %s", resp.Status, body)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:7473", "Daemon address")
	cmd.Flags().BoolVar(&silent, "silent", false, "Store without notifying subscribers")

	return cmd
}
