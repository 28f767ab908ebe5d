package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/ftserve/src/command"
	"github.com/danmuck/ftserve/src/config"
	"github.com/danmuck/ftserve/src/journal"
	"github.com/danmuck/ftserve/src/metrics"
	"github.com/danmuck/ftserve/src/wire"
	logs "github.com/danmuck/smplog"
)

const unknownHost = "unknown host"

// Server accepts control connections one at a time and answers each with a
// single response.
type Server struct {
	cfg      config.ServerConfig
	proc     *command.Processor
	journal  *journal.Journal
	metrics  *metrics.Recorder
	listener net.Listener
	dialer   net.Dialer
}

// NewServer builds a server for cfg. The journal and recorder may be nil.
func NewServer(cfg config.ServerConfig, j *journal.Journal, rec *metrics.Recorder) *Server {
	logs.Debugf("NewServer(port=%d, dir=%s)", cfg.Port, cfg.BaseDir)
	return &Server{
		cfg:     cfg,
		proc:    command.NewProcessor(cfg.BaseDir),
		journal: j,
		metrics: rec,
		dialer:  net.Dialer{Timeout: cfg.DataDialTimeout()},
	}
}

// Listen binds the control port.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("listen on %d: %w", s.cfg.Port, err)
	}
	s.listener = ln
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.cfg.Port = addr.Port
	}
	logs.Infof("Server open on %d (serving %s)", s.cfg.Port, s.cfg.BaseDir)
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled. Cancellation is only
// observed between connections; a session in progress always completes.
// A non-nil error means the environment is unusable and the process should
// exit.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("serve: Listen has not been called")
	}
	defer s.listener.Close()

	tcpLn, isTCP := s.listener.(*net.TCPListener)
	for {
		select {
		case <-ctx.Done():
			logs.Infof("Exiting ftserver.")
			return nil
		default:
		}

		if isTCP {
			tcpLn.SetDeadline(time.Now().Add(s.cfg.AcceptPoll()))
		}
		logs.Debugf("Waiting on inbound connection...")
		conn, err := s.listener.Accept()
		if err != nil {
			var opErr *net.OpError
			if errors.As(err, &opErr) && opErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logs.Warnf("accept: %v", err)
			continue
		}

		if err := s.handleConn(context.WithoutCancel(ctx), conn); err != nil {
			return err
		}
	}
}

// Close stops the listener; a running Serve returns.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// handleConn serves one control connection end to end. Only environment
// failures are returned.
func (s *Server) handleConn(ctx context.Context, ctrl net.Conn) error {
	start := time.Now()
	sess := newSession(ctrl)
	defer s.finish(sess, start)
	defer closeConn(ctrl, "control")

	sess.peer = command.Peer{Host: s.lookupHost(ctx, sess.ip), ServerPort: uint16(s.cfg.Port)}
	logs.Infof("Connection from %s", sess.peer.Host)

	cmd, err := wire.ReceiveCommand(ctrl)
	sess.cmd = cmd
	if errors.Is(err, wire.ErrBodyTooLarge) && !errors.Is(err, wire.ErrInvalidName) {
		// the body is left unread; the reply still goes out before close
		logs.Warnf("%s: %v", sess.peer.Host, err)
		err = nil
	}
	var res command.Result
	switch {
	case errors.Is(err, wire.ErrInvalidName):
		logs.Warnf("%s: %v", sess.peer.Host, err)
		res = command.InvalidName(sess.peer)
	case errors.Is(err, wire.ErrClosed):
		logs.Warnf("%s: client ended connection", sess.peer.Host)
		sess.abandon(err)
		return nil
	case err != nil:
		logs.Warnf("%s: %v", sess.peer.Host, err)
		sess.abandon(err)
		return nil
	default:
		logRequest(cmd)
		res, err = s.proc.Execute(cmd, sess.peer)
		if err != nil {
			sess.abandon(err)
			return err
		}
	}
	defer res.Body.Release()

	if res.Mode == wire.ModeError {
		if err := wire.SendResponse(ctrl, wire.ModeError, 0, res.Body.Bytes()); err != nil {
			logs.Warnf("%s: send error reply: %v", sess.peer.Host, err)
			sess.abandon(err)
			return nil
		}
		sess.sent(res)
		return nil
	}

	dataAddr := net.JoinHostPort(sess.ip, strconv.Itoa(int(cmd.DataPort)))
	data, err := s.dialer.DialContext(ctx, "tcp", dataAddr)
	if err != nil {
		logs.Warnf("data connection to %s: %v", dataAddr, err)
		s.metrics.DataDialFailed()
		sess.abandon(err)
		return nil
	}
	defer closeConn(data, "data")

	if err := wire.SendResponse(data, wire.ModeReply, cmd.DataPort, res.Body.Bytes()); err != nil {
		logs.Warnf("%s: send reply: %v", dataAddr, err)
		sess.abandon(err)
		return nil
	}
	sess.sent(res)
	return nil
}

// lookupHost returns the peer's host name, or its address when resolution
// is disabled, and unknownHost when resolution fails.
func (s *Server) lookupHost(ctx context.Context, ip string) string {
	if !s.cfg.ResolveHosts {
		return ip
	}
	names, err := net.DefaultResolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		logs.Debugf("lookupHost(%s): %v", ip, err)
		return unknownHost
	}
	return names[0]
}

func logRequest(cmd wire.Command) {
	switch cmd.Mode {
	case wire.ModeRetrieve:
		logs.Infof("File %q requested on port %d.", cmd.Name(), cmd.DataPort)
	case wire.ModeList:
		logs.Infof("List directory requested on port %d.", cmd.DataPort)
	default:
		logs.Infof("Unrecognized command requested on port %d.", cmd.DataPort)
	}
}

func closeConn(c net.Conn, which string) {
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logs.Warnf("close %s connection: %v", which, err)
	}
}
