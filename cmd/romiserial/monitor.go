package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"romiserial/host/client"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print every frame received from the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		err = c.Monitor(ctx, func(f client.MonitorFrame) {
			printFrame(out, f)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func printFrame(w io.Writer, f client.MonitorFrame) {
	switch {
	case f.Log:
		fmt.Fprintf(w, "log   %s\n", f.Payload[1:])
	case f.HasID:
		fmt.Fprintf(w, "%02x    %s\n", f.ID, f.Payload)
	default:
		fmt.Fprintf(w, "--    %s\n", f.Payload)
	}
}
