package wire

import "fmt"

const (
	HeaderLen   = 7   // mode(1) + data port(2) + body length(4)
	MaxFileName = 255 // longest file name accepted in a retrieve body
)

// Mode is the single-byte tag at offset 0 of every header.
type Mode byte

// Request modes
const (
	ModeList     Mode = 'l'
	ModeRetrieve Mode = 'g'
)

// Response modes
const (
	ModeReply Mode = 'r'
	ModeError Mode = 'e'
)

func (m Mode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeRetrieve:
		return "retrieve"
	case ModeReply:
		return "reply"
	case ModeError:
		return "error"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(m))
	}
}

// Header is the decoded fixed-length application header.
type Header struct {
	Mode       Mode
	DataPort   uint16
	BodyLength uint32
}

// DecodeUint reads an n-byte big-endian unsigned integer from the front of b.
// n must be in [1,4] and b must hold at least n bytes.
func DecodeUint(b []byte, n int) uint32 {
	checkWidth(n)
	_ = b[n-1]
	var v uint32
	for i := 0; i < n; i++ {
		v <<= 8
		v |= uint32(b[i])
	}
	return v
}

// EncodeUint writes the low n bytes of v into dst in big-endian order,
// filling from the last byte backwards. n must be in [1,4] and dst must
// hold at least n bytes.
func EncodeUint(dst []byte, n int, v uint32) {
	checkWidth(n)
	_ = dst[n-1]
	for i := n - 1; i >= 0; i-- {
		dst[i] = byte(v & 0xff)
		v >>= 8
	}
}

func checkWidth(n int) {
	if n < 1 || n > 4 {
		panic(fmt.Sprintf("wire: integer width %d outside [1,4]", n))
	}
}

// DecodeHeader unpacks the first HeaderLen bytes of b. The mode tag is not
// validated here.
func DecodeHeader(b []byte) Header {
	_ = b[HeaderLen-1]
	return Header{
		Mode:       Mode(b[0]),
		DataPort:   uint16(DecodeUint(b[1:3], 2)),
		BodyLength: DecodeUint(b[3:7], 4),
	}
}

// EncodeHeader packs h. Error headers carry a zero data port.
func EncodeHeader(h Header) [HeaderLen]byte {
	var out [HeaderLen]byte
	out[0] = byte(h.Mode)
	if h.Mode != ModeError {
		EncodeUint(out[1:3], 2, uint32(h.DataPort))
	}
	EncodeUint(out[3:7], 4, h.BodyLength)
	return out
}
