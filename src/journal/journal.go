// Package journal keeps an append-only record of served sessions.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/ftserve/src/wire"
	logs "github.com/danmuck/smplog"
)

// Entry describes one control connection after it was closed.
type Entry struct {
	Time       time.Time
	Client     string
	Mode       wire.Mode // request mode as received
	DataPort   uint16
	Outcome    string // see metrics.Outcome* for the values the server writes
	FileName   string
	BodyLength uint32 // bytes of response body sent, 0 when abandoned
	Detail     string
}

// Journal appends entries to a file. A nil *Journal discards entries.
type Journal struct {
	path  string
	f     *os.File
	coder Coder
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	logs.Debugf("journal.Open(%s)", path)
	return &Journal{path: path, f: f, coder: DefaultCoder{}}, nil
}

func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Append encodes e and writes it as one record.
func (j *Journal) Append(e Entry) error {
	if j == nil {
		return nil
	}
	rec, err := j.coder.Encode(e)
	if err != nil {
		return err
	}
	return wire.SendAll(j.f, rec)
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.f.Close()
}

// Read decodes every record in r until end of input.
func Read(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		coder   DefaultCoder
	)
	for {
		e, err := coder.Decode(r)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("record %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
}

func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
