package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/trackd-dev/trackd/pkg/protocol"
)

func watchCmd() *cobra.Command {
	var (
		addr string
		mode string
	)

	cmd := &cobra.Command{
		Use:   "watch NAME",
		Short: "Stream a tracker's updates",
		Long: `Subscribe to a tracker over the daemon's websocket and print each
update as it arrives. --mode selects the listener lifecycle: every (the
default) replays the current value and then follows every assignment,
once prints a single value and exits, next waits for exactly one future
assignment and exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch protocol.Mode(mode) {
			case protocol.ModeOnce, protocol.ModeEvery, protocol.ModeNext:
			default:
				return fmt.Errorf("invalid mode %q (want once, every, or next)", mode)
			}

			conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", addr), nil)
			if err != nil {
				return fmt.Errorf("dial failed: %w", err)
			}
			defer conn.Close()

			sub, err := json.Marshal(&protocol.ClientFrame{
				Type: protocol.MsgSubscribe,
				Name: args[0],
				Mode: protocol.Mode(mode),
			})
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
				return fmt.Errorf("subscribe failed: %w", err)
			}

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			go func() {
				<-interrupt
				conn.Close()
			}()

			oneShot := protocol.Mode(mode) != protocol.ModeEvery
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return fmt.Errorf("read failed: %w", err)
				}

				frame, err := protocol.DecodeServerFrame(msg)
				if err != nil {
					return fmt.Errorf("bad frame from daemon: %w", err)
				}

				switch frame.Type {
				case protocol.MsgUpdate:
					fmt.Println(string(frame.Value))
					if oneShot {
						return nil
					}
				case protocol.MsgError:
					return fmt.Errorf("daemon error %s: %s", frame.Code, frame.Message)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:7473", "Daemon address")
	cmd.Flags().StringVarP(&mode, "mode", "m", "every", "Listener lifecycle: once, every, or next")

	return cmd
}
