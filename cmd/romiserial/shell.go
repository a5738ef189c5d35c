package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"romiserial/host/client"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Send requests interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Connected to %s\n", cfg.Serial.Device)
		fmt.Fprintln(out, "Enter requests (type 'help' for commands, 'quit' to exit):")
		return runShell(cmd.Context(), c, cmd.InOrStdin(), out)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// runShell reads one request per line until quit or end of input. Request
// errors are printed and do not end the session.
func runShell(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil

		case "help":
			printHelp(out)

		case "identify", "id":
			id, err := c.Identify(ctx)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", describeError(err))
				continue
			}
			fmt.Fprintln(out, id)

		default:
			if err := shellRequest(ctx, c, line, out); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func shellRequest(ctx context.Context, c *client.Client, line string, out io.Writer) error {
	var args []string
	if strings.ContainsAny(line, "[\"") {
		args = []string{line}
	} else {
		args = strings.Fields(line)
	}
	req, err := parseRequest(args, "", false)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return describeError(err)
	}
	fmt.Fprintln(out, formatResponse(resp))
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  help              - Show this help message")
	fmt.Fprintln(out, "  identify          - Show protocol version and handler count")
	fmt.Fprintln(out, "  <op> [values...]  - Send a request, e.g. V 100 -200")
	fmt.Fprintln(out, "  <payload>         - Send a request in wire syntax, e.g. D[0,1,\"hi\"]")
	fmt.Fprintln(out, "  quit/exit/q       - Exit the program")
	fmt.Fprintln(out)
}
