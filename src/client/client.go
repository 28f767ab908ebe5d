package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/ftserve/src/config"
	"github.com/danmuck/ftserve/src/wire"
	logs "github.com/danmuck/smplog"
)

// DataGrace is how long the client keeps waiting for the data connection
// after the server has closed the control connection without an error reply.
const DataGrace = 2 * time.Second

var (
	ErrInvalidFileName = errors.New("client: invalid file name")
	ErrNoReply         = errors.New("client: server closed the connection without a reply")
)

// ServerError carries the message of an error reply.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return "server: " + e.Message }

// Client issues one command per call. Each call listens on the data port,
// opens a control connection, and waits for the reply on whichever
// connection the server uses.
type Client struct {
	cfg    config.ClientConfig
	dialer net.Dialer
}

func New(cfg config.ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, dialer: net.Dialer{Timeout: 10 * time.Second}}, nil
}

// List returns the names of the regular files the server shares.
func (c *Client) List(ctx context.Context) ([]string, error) {
	body, err := c.exchange(ctx, wire.ModeList, "")
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(string(body), "\n"), "\n"), nil
}

// Retrieve returns the contents of name.
func (c *Client) Retrieve(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateFileName(name); err != nil {
		return nil, err
	}
	return c.exchange(ctx, wire.ModeRetrieve, name)
}

// ValidateFileName applies the client-side name rules: non-empty, at most
// wire.MaxFileName bytes, no path separator and no NUL.
func ValidateFileName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidFileName)
	case len(name) > wire.MaxFileName:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidFileName, len(name), wire.MaxFileName)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: %q contains '/' or NUL", ErrInvalidFileName, name)
	}
	return nil
}

type frameResult struct {
	hdr  wire.Header
	body []byte
	err  error
}

func (c *Client) exchange(ctx context.Context, mode wire.Mode, name string) ([]byte, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(c.cfg.DataHost, strconv.Itoa(c.cfg.DataPort)))
	if err != nil {
		return nil, fmt.Errorf("listen for data connection: %w", err)
	}
	defer ln.Close()
	dataPort := ln.Addr().(*net.TCPAddr).Port

	ctrl, err := c.dialer.DialContext(ctx, "tcp", c.cfg.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.ServerAddr, err)
	}
	defer ctrl.Close()

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		ctrl.Close()
	})
	defer stop()

	cmd := wire.Command{Mode: mode, DataPort: uint16(dataPort), FileName: []byte(name)}
	if err := wire.SendCommand(ctrl, cmd); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}
	logs.Debugf("exchange(%s %q): waiting on data port %d", mode, name, dataPort)

	ctrlCh := make(chan frameResult, 1)
	dataCh := make(chan frameResult, 1)
	go func() {
		hdr, body, err := wire.ReceiveResponse(ctrl)
		ctrlCh <- frameResult{hdr, body, err}
	}()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			dataCh <- frameResult{err: err}
			return
		}
		defer conn.Close()
		hdr, body, err := wire.ReceiveResponse(conn)
		dataCh <- frameResult{hdr, body, err}
	}()

	for {
		select {
		case r := <-ctrlCh:
			if errors.Is(r.err, wire.ErrClosed) {
				// the server closes control after the data connection is up,
				// so a pending data connection is already queued
				if tl, ok := ln.(*net.TCPListener); ok {
					tl.SetDeadline(time.Now().Add(DataGrace))
				}
				ctrlCh = nil
				continue
			}
			if r.err != nil {
				return nil, ctxErr(ctx, fmt.Errorf("control connection: %w", r.err))
			}
			if r.hdr.Mode != wire.ModeError {
				return nil, fmt.Errorf("unexpected %s reply on control connection", r.hdr.Mode)
			}
			return nil, &ServerError{Message: string(r.body)}

		case r := <-dataCh:
			if r.err != nil {
				var opErr *net.OpError
				if errors.As(r.err, &opErr) && opErr.Timeout() {
					return nil, ErrNoReply
				}
				return nil, ctxErr(ctx, fmt.Errorf("data connection: %w", r.err))
			}
			if r.hdr.Mode != wire.ModeReply {
				return nil, fmt.Errorf("unexpected %s reply on data connection", r.hdr.Mode)
			}
			if r.hdr.DataPort != uint16(dataPort) {
				logs.Debugf("exchange(): reply echoed port %d, listening on %d", r.hdr.DataPort, dataPort)
			}
			return r.body, nil
		}
	}
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
