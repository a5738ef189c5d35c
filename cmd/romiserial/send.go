package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"romiserial/host/client"
	"romiserial/protocol"
)

var sendString string

var sendCmd = &cobra.Command{
	Use:   "send <op> [values...]",
	Short: "Send one request and print the response",
	Long: `Send one request. The request is either an opcode followed by integer
values, or a single payload in wire syntax. Negative values need the
payload form or a "--" separator.`,
	Example: `  romiserial send V 100 200
  romiserial send 'V[100,-200]'
  romiserial send D 0 1 --string "hello"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := parseRequest(args, sendString, cmd.Flags().Changed("string"))
		if err != nil {
			return err
		}

		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Do(cmd.Context(), req)
		if err != nil {
			return describeError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatResponse(resp))
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendString, "string", "s", "", "string argument")
	rootCmd.AddCommand(sendCmd)
}

// parseRequest builds a request from command-line arguments.
func parseRequest(args []string, str string, hasStr bool) (protocol.Request, error) {
	if len(args) == 0 {
		return protocol.Request{}, errors.New("missing opcode")
	}

	if len(args[0]) > 1 {
		if len(args) > 1 || hasStr {
			return protocol.Request{}, errors.New("a payload takes no further arguments")
		}
		return parsePayload(args[0])
	}

	op := args[0][0]
	if !protocol.IsOpcode(op) {
		return protocol.Request{}, fmt.Errorf("invalid opcode %q", op)
	}
	req := protocol.Request{Opcode: op, Str: str, HasString: hasStr}
	for _, arg := range args[1:] {
		v, err := strconv.ParseInt(arg, 10, 16)
		if err != nil {
			return protocol.Request{}, fmt.Errorf("invalid value %q: %w", arg, err)
		}
		req.Args = append(req.Args, int16(v))
	}
	return req, nil
}

// parsePayload decodes a payload written in wire syntax, e.g. V[1,-2,"s"].
func parsePayload(s string) (protocol.Request, error) {
	msg, err := protocol.NewMessageParser().Parse(append([]byte(s), 0))
	if err != nil {
		return protocol.Request{}, fmt.Errorf("invalid payload %q: %w", s, err)
	}
	return protocol.Request{
		Opcode:    msg.Opcode,
		Args:      append([]int16(nil), msg.Args()...),
		Str:       msg.Str(),
		HasString: msg.HasString,
	}, nil
}

// formatResponse renders a response the way it appears on the wire, with
// the status value dropped.
func formatResponse(resp *client.Response) string {
	var b strings.Builder
	b.WriteByte(resp.Opcode)
	if resp.Duplicate {
		b.WriteString(" (executed, response lost)")
		return b.String()
	}
	if len(resp.Values) == 0 && !resp.HasString {
		b.WriteString(" ok")
		return b.String()
	}
	b.WriteByte(' ')
	for i, v := range resp.Values {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	if resp.HasString {
		if len(resp.Values) > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Quote(resp.Str))
	}
	return b.String()
}

// describeError adds the numeric code to device errors.
func describeError(err error) error {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return fmt.Errorf("device error %d: %w", perr.Code, err)
	}
	return err
}
