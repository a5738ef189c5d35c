package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Identify the device and measure round-trip time",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		id, err := c.Identify(cmd.Context())
		if err != nil {
			return describeError(err)
		}
		fmt.Fprintln(out, id)

		for i := 0; i < pingCount; i++ {
			if i > 0 {
				time.Sleep(pingInterval)
			}
			rtt, err := c.Ping(cmd.Context())
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(out, "seq=%d time=%v\n", i, rtt.Round(time.Microsecond))
		}
		return nil
	},
}

func init() {
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 1, "number of pings")
	pingCmd.Flags().DurationVarP(&pingInterval, "interval", "i", time.Second, "time between pings")
	rootCmd.AddCommand(pingCmd)
}
