package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrClosed reports an orderly shutdown by the peer before a full
	// message arrived. It is distinct from a failed read.
	ErrClosed = errors.New("wire: connection closed by peer")

	// ErrInvalidName reports a retrieve body that cannot be a file name.
	ErrInvalidName = errors.New("wire: invalid file name")

	// ErrBodyTooLarge reports a body too long to drain; it was left unread.
	ErrBodyTooLarge = errors.New("wire: body too large to drain")
)

// MaxDiscard bounds how many unused body bytes are drained before a reply.
const MaxDiscard = 64 << 10

// Command is a decoded client request. FileName is the raw body: a byte
// sequence of exactly BodyLength bytes with no terminator.
type Command struct {
	Mode       Mode
	DataPort   uint16
	BodyLength uint32
	FileName   []byte
}

func (c Command) Name() string { return string(c.FileName) }

// ReceiveExact reads exactly n bytes from r. If the peer closes first the
// bytes accumulated so far are returned together with ErrClosed. Any other
// read failure is returned at once.
func ReceiveExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:got], ErrClosed
	default:
		return buf[:got], fmt.Errorf("wire: receive: %w", err)
	}
}

// SendAll writes p in full. Partial writes are retried from where they left
// off; the first failed write aborts the send.
func SendAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return fmt.Errorf("wire: send: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("wire: send: %w", io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// ReceiveCommand reads one request frame. Only retrieve bodies are file
// names: longer than MaxFileName or containing NUL is ErrInvalidName, and an
// over-long name is drained with DiscardBody before returning. Bodies sent
// with any other mode are drained and dropped, so FileName stays nil.
// On ErrInvalidName or ErrBodyTooLarge the returned Command still carries
// the decoded header fields.
func ReceiveCommand(r io.Reader) (Command, error) {
	raw, err := ReceiveExact(r, HeaderLen)
	if err != nil {
		return Command{}, err
	}
	hdr := DecodeHeader(raw)
	cmd := Command{
		Mode:       hdr.Mode,
		DataPort:   hdr.DataPort,
		BodyLength: hdr.BodyLength,
	}
	if hdr.BodyLength == 0 {
		return cmd, nil
	}
	if hdr.Mode != ModeRetrieve {
		return cmd, DiscardBody(r, hdr.BodyLength)
	}
	if hdr.BodyLength > MaxFileName {
		nameErr := fmt.Errorf("%w: body of %d bytes exceeds %d", ErrInvalidName, hdr.BodyLength, MaxFileName)
		switch err := DiscardBody(r, hdr.BodyLength); {
		case errors.Is(err, ErrBodyTooLarge):
			return cmd, errors.Join(nameErr, err)
		case err != nil:
			return cmd, err
		}
		return cmd, nameErr
	}

	body, err := ReceiveExact(r, int(hdr.BodyLength))
	if err != nil {
		return cmd, err
	}
	if bytes.IndexByte(body, 0) >= 0 {
		return cmd, fmt.Errorf("%w: name contains a NUL byte", ErrInvalidName)
	}
	cmd.FileName = body
	return cmd, nil
}

// DiscardBody reads and drops n bytes of a body nobody will use. Bodies
// over MaxDiscard are left unread and reported as ErrBodyTooLarge; the
// caller replies and then closes the connection.
func DiscardBody(r io.Reader, n uint32) error {
	if n > MaxDiscard {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrBodyTooLarge, n, MaxDiscard)
	}
	if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrClosed
		}
		return fmt.Errorf("wire: discard: %w", err)
	}
	return nil
}

// ReceiveBody reads an n byte body into a buffer that grows with the bytes
// actually received, so a bogus length costs nothing until data arrives.
// A peer that closes early yields the partial body and ErrClosed.
func ReceiveBody(r io.Reader, n uint32) ([]byte, error) {
	body := NewBuffer(min(int(n), DefaultBufferCap))
	_, err := io.CopyN(body, r, int64(n))
	switch {
	case err == nil:
		return body.Bytes(), nil
	case errors.Is(err, io.EOF):
		return body.Bytes(), ErrClosed
	default:
		return body.Bytes(), fmt.Errorf("wire: receive: %w", err)
	}
}

// SendResponse writes a header sized to body followed by body.
func SendResponse(w io.Writer, mode Mode, dataPort uint16, body []byte) error {
	if uint64(len(body)) > math.MaxUint32 {
		panic(fmt.Sprintf("wire: body of %d bytes does not fit a 4-byte length", len(body)))
	}
	hdr := EncodeHeader(Header{
		Mode:       mode,
		DataPort:   dataPort,
		BodyLength: uint32(len(body)),
	})
	if err := SendAll(w, hdr[:]); err != nil {
		return err
	}
	return SendAll(w, body)
}

// SendCommand writes a request frame. The body is the file name, if any.
func SendCommand(w io.Writer, cmd Command) error {
	if len(cmd.FileName) > MaxFileName {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidName, len(cmd.FileName), MaxFileName)
	}
	msg := NewBuffer(HeaderLen + len(cmd.FileName))
	hdr := EncodeHeader(Header{
		Mode:       cmd.Mode,
		DataPort:   cmd.DataPort,
		BodyLength: uint32(len(cmd.FileName)),
	})
	msg.AppendBytes(hdr[:])
	msg.AppendBytes(cmd.FileName)
	return SendAll(w, msg.Bytes())
}

// ReceiveResponse reads one response frame of any size.
func ReceiveResponse(r io.Reader) (Header, []byte, error) {
	raw, err := ReceiveExact(r, HeaderLen)
	if err != nil {
		return Header{}, nil, err
	}
	hdr := DecodeHeader(raw)
	if hdr.BodyLength == 0 {
		return hdr, nil, nil
	}
	body, err := ReceiveBody(r, hdr.BodyLength)
	if err != nil {
		return hdr, body, err
	}
	return hdr, body, nil
}
