package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/snapsolve/pkg/web"
)

var watchURL string

func watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print state changes from a running dashboard",
		Example: `  snapsolve watch
  snapsolve watch --url ws://192.168.1.20:8080/ws/state`,
		RunE: runWatch,
	}
	cmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8080/ws/state", "Dashboard state websocket")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, watchURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", watchURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	out := cmd.OutOrStdout()
	for {
		var msg web.StateMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read state: %w", err)
		}
		fmt.Fprintln(out, formatState(msg))
	}
}

func formatState(msg web.StateMessage) string {
	line := fmt.Sprintf("[%s] muted=%t", msg.Phase, msg.Muted)
	if msg.ErrorText != "" {
		line += " error=" + msg.ErrorText
	}
	if msg.SolutionText != "" {
		line += "\n" + msg.SolutionText
	}
	return line
}
