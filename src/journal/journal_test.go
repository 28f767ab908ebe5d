package journal

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/ftserve/src/wire"
)

func sampleEntries() []Entry {
	base := time.Date(2017, 3, 11, 12, 0, 0, 0, time.UTC)
	return []Entry{
		{
			Time:       base,
			Client:     "flip1.engr.example",
			Mode:       wire.ModeList,
			DataPort:   30021,
			Outcome:    "reply",
			BodyLength: 12,
		},
		{
			Time:       base.Add(time.Second),
			Client:     "127.0.0.1",
			Mode:       wire.ModeRetrieve,
			DataPort:   30022,
			Outcome:    "error",
			FileName:   "missing.txt",
			BodyLength: 14,
			Detail:     "FILE NOT FOUND",
		},
		{
			Time:     base.Add(2 * time.Second),
			Client:   "127.0.0.1",
			Mode:     'x',
			Outcome:  "abandoned",
			FileName: "\xff\xfe raw",
			Detail:   "dial tcp 127.0.0.1:1: connection refused",
		},
	}
}

func TestAppendThenReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.journal")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := sampleEntries()
	for _, e := range want {
		if err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// reopening appends after the existing records
	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	extra := want[0]
	extra.Time = extra.Time.Add(time.Hour)
	if err := j.Append(extra); err != nil {
		t.Fatalf("Append: %v", err)
	}
	j.Close()
	want = append(want, extra)

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ReadFile returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Time.Equal(want[i].Time) {
			t.Fatalf("entry %d time = %v, want %v", i, got[i].Time, want[i].Time)
		}
		got[i].Time = want[i].Time
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadTruncatedRecord(t *testing.T) {
	rec, err := DefaultCoder{}.Encode(sampleEntries()[0])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name    string
		input   []byte
		want    int
		wantErr error
	}{
		{name: "empty", input: nil, want: 0},
		{name: "whole record", input: rec, want: 1},
		{name: "cut in prefix", input: rec[:2], wantErr: io.ErrUnexpectedEOF},
		{name: "cut in body", input: append(append([]byte{}, rec...), rec[:len(rec)-1]...), want: 1, wantErr: io.ErrUnexpectedEOF},
		{name: "corrupt prefix", input: append(append([]byte{}, rec...), 0xff, 0xff, 0xff, 0xff, 'x'), want: 1, wantErr: ErrRecordTooLarge},
		{name: "prefix at limit cut short", input: []byte{0, 1, 0, 0, 'x'}, wantErr: io.ErrUnexpectedEOF},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Read(bytes.NewReader(tc.input))
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Read: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Read err = %v, want %v", err, tc.wantErr)
			}
			if len(got) != tc.want {
				t.Fatalf("Read returned %d entries, want %d", len(got), tc.want)
			}
		})
	}
}

func TestEncodeRejectsOversizedRecord(t *testing.T) {
	e := sampleEntries()[0]
	e.Detail = strings.Repeat("d", MaxRecordLen)
	if _, err := (DefaultCoder{}).Encode(e); !errors.Is(err, ErrRecordTooLarge) {
		t.Fatalf("Encode err = %v, want ErrRecordTooLarge", err)
	}
}

func TestNilJournalDiscards(t *testing.T) {
	var j *Journal
	if err := j.Append(sampleEntries()[0]); err != nil {
		t.Fatalf("Append on nil journal: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close on nil journal: %v", err)
	}
}
