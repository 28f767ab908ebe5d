package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/ftserve/src/wire"
	logs "github.com/danmuck/smplog"
)

// Fixed diagnostic bodies sent with ModeError replies.
const (
	MsgNoDirectoryContents = "NO DIRECTORY CONTENTS"
	MsgFileNotFound        = "FILE NOT FOUND"
	MsgInvalidCommand      = "INVALID COMMAND"
	MsgInvalidFileName     = "INVALID FILE NAME"
)

// ErrDirectoryUnavailable means the base directory itself could not be read.
// It is an environment failure, not a per-request one.
var ErrDirectoryUnavailable = errors.New("command: base directory unavailable")

// Peer identifies the requesting client for log lines.
type Peer struct {
	Host       string // resolved host name, or the address when unresolved
	ServerPort uint16 // port of the control listener
}

// Result is the outcome of one command: the reply mode and its body.
// The caller owns Body and releases it after the reply is sent.
type Result struct {
	Mode wire.Mode
	Body *wire.Buffer
}

// Processor executes list and retrieve commands against a base directory.
// It keeps no state between requests.
type Processor struct {
	baseDir string
}

func NewProcessor(baseDir string) *Processor {
	return &Processor{baseDir: baseDir}
}

func (p *Processor) BaseDir() string { return p.baseDir }

// Execute runs cmd and returns the reply to send. The only error returned is
// ErrDirectoryUnavailable; request-level failures become ModeError results.
func (p *Processor) Execute(cmd wire.Command, peer Peer) (Result, error) {
	body := wire.NewBuffer(wire.DefaultBufferCap)

	switch cmd.Mode {
	case wire.ModeRetrieve:
		mode := p.retrieveFile(body, cmd.Name())
		if mode == wire.ModeReply {
			logs.Infof("Sending %q requested on port %d.", cmd.Name(), cmd.DataPort)
		} else {
			logs.Infof("File not found. Sending error message to %s:%d.", peer.Host, peer.ServerPort)
		}
		return Result{Mode: mode, Body: body}, nil

	case wire.ModeList:
		mode, err := p.generateList(body)
		if err != nil {
			body.Release()
			return Result{}, err
		}
		if mode == wire.ModeReply {
			logs.Infof("Sending directory contents to %s:%d.", peer.Host, cmd.DataPort)
		} else {
			logs.Infof("No directory contents. Sending error message to %s:%d.", peer.Host, peer.ServerPort)
		}
		return Result{Mode: mode, Body: body}, nil

	default:
		body.AppendString(MsgInvalidCommand)
		logs.Infof("Invalid command. Sending error message to %s:%d.", peer.Host, peer.ServerPort)
		return Result{Mode: wire.ModeError, Body: body}, nil
	}
}

// InvalidName builds the reply for a request whose file name was rejected
// while decoding.
func InvalidName(peer Peer) Result {
	body := wire.NewBuffer(len(MsgInvalidFileName))
	body.AppendString(MsgInvalidFileName)
	logs.Infof("Invalid file name. Sending error message to %s:%d.", peer.Host, peer.ServerPort)
	return Result{Mode: wire.ModeError, Body: body}
}

// generateList writes every regular file name in the base directory to body,
// one per line, in name order.
func (p *Processor) generateList(body *wire.Buffer) (wire.Mode, error) {
	entries, err := os.ReadDir(p.baseDir)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrDirectoryUnavailable, p.baseDir, err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		body.AppendString(entry.Name())
		body.AppendByte('\n')
		count++
	}

	if count == 0 {
		body.Clear()
		body.AppendString(MsgNoDirectoryContents)
		return wire.ModeError, nil
	}
	return wire.ModeReply, nil
}

// retrieveFile copies the named file into body. Names are resolved inside the
// base directory only; anything that escapes it, is missing, or is not a
// regular file is reported as not found.
func (p *Processor) retrieveFile(body *wire.Buffer, name string) wire.Mode {
	notFound := func(err error) wire.Mode {
		logs.Debugf("retrieveFile(%q): %v", name, err)
		body.Clear()
		body.AppendString(MsgFileNotFound)
		return wire.ModeError
	}

	root, err := os.OpenRoot(p.baseDir)
	if err != nil {
		return notFound(err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return notFound(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return notFound(err)
	}
	if !info.Mode().IsRegular() {
		return notFound(fmt.Errorf("not a regular file"))
	}

	if _, err := io.Copy(body, f); err != nil {
		return notFound(err)
	}
	return wire.ModeReply
}
