package session

import (
	"net"
	"time"

	"github.com/danmuck/ftserve/src/command"
	"github.com/danmuck/ftserve/src/journal"
	"github.com/danmuck/ftserve/src/metrics"
	"github.com/danmuck/ftserve/src/wire"
	logs "github.com/danmuck/smplog"
)

// session is the bookkeeping for one control connection.
type session struct {
	ip      string
	peer    command.Peer
	cmd     wire.Command
	outcome string
	reply   wire.Mode
	sentLen int
	detail  string
}

func newSession(ctrl net.Conn) *session {
	addr := ctrl.RemoteAddr().String()
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		ip = addr
	}
	return &session{ip: ip, peer: command.Peer{Host: ip}, outcome: metrics.OutcomeAbandoned}
}

func (s *session) abandon(err error) {
	s.outcome = metrics.OutcomeAbandoned
	s.detail = err.Error()
}

func (s *session) sent(res command.Result) {
	s.reply = res.Mode
	s.sentLen = res.Body.Len()
	if res.Mode == wire.ModeError {
		s.outcome = metrics.OutcomeError
		s.detail = res.Body.String()
		return
	}
	s.outcome = metrics.OutcomeReply
}

func modeLabel(m wire.Mode) string {
	switch m {
	case wire.ModeList, wire.ModeRetrieve:
		return m.String()
	default:
		return "unknown"
	}
}

// finish records the session in the journal and metrics.
func (s *Server) finish(sess *session, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.ObserveSession(modeLabel(sess.cmd.Mode), sess.outcome, elapsed)
	if sess.outcome != metrics.OutcomeAbandoned {
		s.metrics.ObserveBytesSent(sess.reply.String(), sess.sentLen)
	}

	err := s.journal.Append(journal.Entry{
		Time:       start,
		Client:     sess.peer.Host,
		Mode:       sess.cmd.Mode,
		DataPort:   sess.cmd.DataPort,
		Outcome:    sess.outcome,
		FileName:   sess.cmd.Name(),
		BodyLength: uint32(sess.sentLen),
		Detail:     sess.detail,
	})
	if err != nil {
		logs.Errorf(err, "journal append failed")
	}
	logs.Debugf("session(%s): %s in %v", sess.peer.Host, sess.outcome, elapsed)
}
