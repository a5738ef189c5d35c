// Package client is the host side of the romiserial protocol. A Client
// sends one request at a time and waits for the matching response,
// re-sending the identical frame when the response is lost.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"romiserial/internal/logging"
	"romiserial/internal/observability"
	"romiserial/protocol"
)

var (
	ErrTimeout            = errors.New("client: timed out waiting for response")
	ErrClosed             = errors.New("client: closed")
	ErrUnexpectedResponse = errors.New("client: unexpected response")
)

// resendError wraps a framing error reported by the device: the request
// never reached a handler and can be sent again.
type resendError struct {
	cause *protocol.Error
}

func (e *resendError) Error() string {
	return "client: request rejected before dispatch: " + e.cause.Error()
}

func (e *resendError) Unwrap() error {
	return e.cause
}

// LogHandler receives the text of diagnostic frames sent by the device.
type LogHandler func(message string)

// Config holds client settings
type Config struct {
	// Timeout bounds the wait for one attempt
	Timeout time.Duration

	// Retries is the number of times a request is re-sent after a timeout
	Retries int

	// PollInterval is the sleep between transport polls while waiting
	PollInterval time.Duration

	// FirstID is the id of the first request
	FirstID uint8

	LogHandler LogHandler
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:      time.Second,
		Retries:      2,
		PollInterval: time.Millisecond,
	}
}

// Response is a decoded success response. Values excludes the leading
// status value.
type Response struct {
	Opcode    byte
	ID        uint8
	Values    []int16
	Str       string
	HasString bool

	// Attempts is the number of frames sent for this request
	Attempts int

	// Duplicate is set when a retry was answered with DuplicateMessage:
	// the device executed an earlier attempt but its response was lost,
	// so Values is empty.
	Duplicate bool
}

// Client talks to one device over a Transport. It is safe for concurrent
// use; requests are serialized.
type Client struct {
	mu        sync.Mutex
	transport protocol.Transport
	cfg       Config
	log       *zap.Logger

	envelope protocol.EnvelopeParser
	decoder  *protocol.MessageParser
	nextID   uint8
	closed   bool
}

// New creates a client on t.
func New(t protocol.Transport, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	c := &Client{
		transport: t,
		cfg:       cfg,
		log:       logging.Named("client"),
		decoder:   protocol.NewResponseParser(),
		nextID:    cfg.FirstID,
	}
	if c.cfg.LogHandler == nil {
		c.cfg.LogHandler = func(message string) {
			c.log.Info("device log", zap.String("message", message))
		}
	}
	return c
}

// Do sends req and waits for its response. The request id is assigned by
// the client. Error responses are returned as *protocol.Error.
func (c *Client) Do(ctx context.Context, req protocol.Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	resp, err := c.do(ctx, req)
	observability.RecordClientRequest(req.Opcode, resultLabel(resp, err), time.Since(start))
	return resp, err
}

func (c *Client) do(ctx context.Context, req protocol.Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.ID, req.HasID = c.takeID(), true
	frame, err := protocol.EncodeRequest(&req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	renumbered := false
	attempts, sent := 0, 0
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			observability.RecordClientRetry(req.Opcode)
			c.log.Debug("resending request", zap.Uint8("id", req.ID), zap.Int("attempt", attempt+1))
		}
		if err := c.write(frame); err != nil {
			return nil, fmt.Errorf("failed to write request: %w", err)
		}
		attempts++
		sent++

		resp, err := c.await(ctx, req.Opcode, req.ID)
		var resend *resendError
		switch {
		case err == nil:
			resp.Attempts = attempts
			return resp, nil

		case errors.Is(err, ErrTimeout):
			if attempt == c.cfg.Retries {
				return nil, err
			}
			continue

		case errors.As(err, &resend):
			if attempt == c.cfg.Retries {
				return nil, resend.cause
			}
			continue

		case protocol.CodeOf(err) == protocol.DuplicateMessage:
			if sent > 1 {
				return &Response{Opcode: req.Opcode, ID: req.ID, Attempts: attempts, Duplicate: true}, nil
			}
			if renumbered {
				return nil, err
			}
			// The device still remembers this id from an earlier session
			renumbered = true
			sent = 0
			req.ID = c.takeID()
			if frame, err = protocol.EncodeRequest(&req); err != nil {
				return nil, fmt.Errorf("failed to encode request: %w", err)
			}
			attempt--
			continue
		}
		return nil, err
	}
	return nil, ErrTimeout
}

func (c *Client) takeID() uint8 {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Client) write(frame []byte) error {
	logging.LogFrame("tx", frame)
	if w, ok := c.transport.(io.Writer); ok {
		_, err := w.Write(frame)
		return err
	}
	for _, b := range frame {
		if err := c.transport.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// await reads frames until the response for id arrives, the attempt
// times out, or ctx is done.
func (c *Client) await(ctx context.Context, opcode byte, id uint8) (*Response, error) {
	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	for {
		for c.transport.Available() {
			b, err := c.transport.ReadByte()
			if err != nil {
				return nil, err
			}
			switch c.envelope.Process(b) {
			case protocol.StatusComplete:
				resp, done, err := c.handleFrame(c.envelope.Frame(), opcode, id)
				if done {
					return resp, err
				}
			case protocol.StatusError:
				c.log.Debug("discarding malformed frame", zap.Stringer("code", c.envelope.Err()))
			}
		}

		if err := c.transportErr(); err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrTimeout
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// handleFrame decodes one received frame. done is false for frames that do
// not answer the pending request.
func (c *Client) handleFrame(f *protocol.Frame, opcode byte, id uint8) (*Response, bool, error) {
	payload := f.Payload()
	if len(payload) > 0 && payload[0] == protocol.LogOpcode {
		c.cfg.LogHandler(string(payload[1:]))
		return nil, false, nil
	}

	msg, err := c.decoder.Parse(f.Terminated())
	if err != nil {
		c.log.Debug("discarding undecodable response", zap.ByteString("payload", payload), zap.Error(err))
		return nil, false, nil
	}

	if !f.HasID {
		// Only an error about a frame the device could not read comes back
		// without an id
		if msg.Opcode == protocol.ErrorOpcode && msg.Len() > 0 {
			code := protocol.Code(msg.Args()[0])
			if code.IsFraming() {
				return nil, true, &resendError{cause: &protocol.Error{Code: code, Message: msg.Str()}}
			}
		}
		c.log.Debug("ignoring response without id", zap.ByteString("payload", payload))
		return nil, false, nil
	}
	if f.ID != id {
		c.log.Debug("ignoring stale response", zap.Uint8("id", f.ID), zap.Uint8("want", id))
		return nil, false, nil
	}

	if msg.Opcode == protocol.ErrorOpcode {
		if msg.Len() == 0 {
			return nil, true, fmt.Errorf("%w: error without code", ErrUnexpectedResponse)
		}
		return nil, true, &protocol.Error{Code: protocol.Code(msg.Args()[0]), Message: msg.Str()}
	}
	if msg.Opcode != opcode {
		return nil, true, fmt.Errorf("%w: opcode %q for request %q", ErrUnexpectedResponse, msg.Opcode, opcode)
	}

	resp := &Response{Opcode: msg.Opcode, ID: f.ID}
	if args := msg.Args(); len(args) > 0 {
		if args[0] != 0 {
			return nil, true, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, args[0])
		}
		resp.Values = append([]int16(nil), args[1:]...)
	} else if msg.HasString {
		return nil, true, fmt.Errorf("%w: missing status", ErrUnexpectedResponse)
	}
	if msg.HasString {
		resp.Str, resp.HasString = msg.Str(), true
	}
	return resp, true, nil
}

// Close closes the client and its transport if it is an io.Closer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func resultLabel(resp *Response, err error) string {
	switch {
	case err == nil && resp.Duplicate:
		return "duplicate"
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case protocol.CodeOf(err) != protocol.OK:
		return "error"
	}
	return "failed"
}

// transportErr reports a transport whose reader has stopped, such as a
// serial port that was unplugged.
func (c *Client) transportErr() error {
	if t, ok := c.transport.(interface{ Err() error }); ok {
		return t.Err()
	}
	return nil
}
