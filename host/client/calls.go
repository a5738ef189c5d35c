package client

import (
	"context"
	"fmt"
	"time"

	"romiserial/protocol"
)

// IdentifyOpcode is the request every romiserial device answers with its
// protocol version.
const IdentifyOpcode = '?'

// Identity is the answer to an identify request
type Identity struct {
	Major   int16
	Minor   int16
	Opcodes int16
}

func (i Identity) String() string {
	return fmt.Sprintf("romiserial %d.%d (%d opcodes)", i.Major, i.Minor, i.Opcodes)
}

// Call sends op with integer arguments.
func (c *Client) Call(ctx context.Context, op byte, values ...int16) (*Response, error) {
	return c.Do(ctx, protocol.Request{Opcode: op, Args: values})
}

// CallString sends op with integer arguments followed by a string.
func (c *Client) CallString(ctx context.Context, op byte, s string, values ...int16) (*Response, error) {
	return c.Do(ctx, protocol.Request{Opcode: op, Args: values, Str: s, HasString: true})
}

// Identify asks the device for its protocol version and handler count.
func (c *Client) Identify(ctx context.Context) (Identity, error) {
	resp, err := c.Call(ctx, IdentifyOpcode)
	if err != nil {
		return Identity{}, err
	}
	if len(resp.Values) < 3 {
		return Identity{}, fmt.Errorf("%w: identify returned %v", ErrUnexpectedResponse, resp.Values)
	}
	return Identity{Major: resp.Values[0], Minor: resp.Values[1], Opcodes: resp.Values[2]}, nil
}

// Ping sends an identify request and returns the round-trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := c.Call(ctx, IdentifyOpcode); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// MonitorFrame is a frame observed by Monitor.
type MonitorFrame struct {
	HasID   bool
	ID      uint8
	Payload string
	Log     bool
}

// Monitor passes every frame received to fn until ctx is done. Malformed
// frames are reported with their error code in place of a payload. No
// request can be sent while Monitor runs.
func (c *Client) Monitor(ctx context.Context, fn func(MonitorFrame)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	for {
		for c.transport.Available() {
			b, err := c.transport.ReadByte()
			if err != nil {
				return err
			}
			switch c.envelope.Process(b) {
			case protocol.StatusComplete:
				f := c.envelope.Frame()
				payload := f.Payload()
				fn(MonitorFrame{
					HasID:   f.HasID,
					ID:      f.ID,
					Payload: string(payload),
					Log:     len(payload) > 0 && payload[0] == protocol.LogOpcode,
				})
			case protocol.StatusError:
				fn(MonitorFrame{Payload: "<" + c.envelope.Err().String() + ">"})
			}
		}
		if err := c.transportErr(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}
