package journal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danmuck/ftserve/src/wire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	lengthPrefix = 4        // big-endian record length ahead of each record
	MaxRecordLen = 64 << 10 // larger prefixes mean a corrupt journal
)

var ErrRecordTooLarge = errors.New("journal: record too large")

type Coder interface {
	Encode(Entry) ([]byte, error)
	Decode(io.Reader) (Entry, error)
}

// DefaultCoder stores each entry as a protobuf Struct behind a 4-byte
// length prefix.
type DefaultCoder struct{}

func (c DefaultCoder) Encode(e Entry) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"time":        e.Time.UTC().Format(time.RFC3339Nano),
		"client":      strings.ToValidUTF8(e.Client, "?"),
		"mode":        int64(e.Mode),
		"data_port":   int64(e.DataPort),
		"outcome":     e.Outcome,
		"file_name":   []byte(e.FileName), // stored base64, names need not be UTF-8
		"body_length": int64(e.BodyLength),
		"detail":      strings.ToValidUTF8(e.Detail, "?"),
	})
	if err != nil {
		return nil, fmt.Errorf("build record: %w", err)
	}
	out, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	if len(out) > MaxRecordLen {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrRecordTooLarge, len(out), MaxRecordLen)
	}

	rec := wire.NewBuffer(lengthPrefix + len(out))
	var hdr [lengthPrefix]byte
	wire.EncodeUint(hdr[:], lengthPrefix, uint32(len(out)))
	rec.AppendBytes(hdr[:])
	rec.AppendBytes(out)
	return rec.Bytes(), nil
}

// Decode reads one record. A clean end of input before a record starts is
// reported as io.EOF; a record cut short is io.ErrUnexpectedEOF.
func (c DefaultCoder) Decode(r io.Reader) (Entry, error) {
	hdr, err := wire.ReceiveExact(r, lengthPrefix)
	if errors.Is(err, wire.ErrClosed) {
		if len(hdr) == 0 {
			return Entry{}, io.EOF
		}
		return Entry{}, io.ErrUnexpectedEOF
	}
	if err != nil {
		return Entry{}, err
	}

	size := wire.DecodeUint(hdr, lengthPrefix)
	if size > MaxRecordLen {
		return Entry{}, fmt.Errorf("%w: prefix claims %d bytes, limit %d", ErrRecordTooLarge, size, MaxRecordLen)
	}
	msg, err := wire.ReceiveBody(r, size)
	if errors.Is(err, wire.ErrClosed) {
		return Entry{}, io.ErrUnexpectedEOF
	}
	if err != nil {
		return Entry{}, err
	}

	st := &structpb.Struct{}
	if err := proto.Unmarshal(msg, st); err != nil {
		return Entry{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return entryFromStruct(st)
}

func entryFromStruct(st *structpb.Struct) (Entry, error) {
	f := st.GetFields()
	ts, err := time.Parse(time.RFC3339Nano, f["time"].GetStringValue())
	if err != nil {
		return Entry{}, fmt.Errorf("record time: %w", err)
	}
	name, err := base64.StdEncoding.DecodeString(f["file_name"].GetStringValue())
	if err != nil {
		return Entry{}, fmt.Errorf("record file name: %w", err)
	}
	return Entry{
		Time:       ts,
		Client:     f["client"].GetStringValue(),
		Mode:       wire.Mode(f["mode"].GetNumberValue()),
		DataPort:   uint16(f["data_port"].GetNumberValue()),
		Outcome:    f["outcome"].GetStringValue(),
		FileName:   string(name),
		BodyLength: uint32(f["body_length"].GetNumberValue()),
		Detail:     f["detail"].GetStringValue(),
	}, nil
}
