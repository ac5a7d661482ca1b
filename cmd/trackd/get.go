package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print a tracker's current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(apiURL(addr, args[0]))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read failed: %w", err)
			}
			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("unknown tracker %q", args[0])
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("daemon returned %s: %s", resp.Status, body)
			}

			var state struct {
				Initialized bool            `json:"initialized"`
				Value       json.RawMessage `json:"value"`
			}
			if err := json.Unmarshal(body, &state); err != nil {
				return fmt.Errorf("decode failed: %w", err)
			}
			if !state.Initialized {
				fmt.Println("(uninitialized)")
				return nil
			}
			fmt.Println(string(state.Value))
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:7473", "Daemon address")

	return cmd
}
