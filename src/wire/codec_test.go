package wire

import (
	"bytes"
	"testing"
)

func TestUintRoundTrip(t *testing.T) {
	for n := 1; n <= 4; n++ {
		limit := uint64(1)<<(8*uint(n)) - 1
		values := []uint64{0, 1, 0x7f, 0x80, limit / 2, limit - 1, limit}
		for _, v := range values {
			buf := make([]byte, n)
			EncodeUint(buf, n, uint32(v))
			if got := DecodeUint(buf, n); uint64(got) != v {
				t.Fatalf("DecodeUint(EncodeUint(%d, %d)) = %d", v, n, got)
			}
		}
	}
}

func TestEncodeUintBigEndian(t *testing.T) {
	tests := []struct {
		name string
		n    int
		v    uint32
		want []byte
	}{
		{name: "one byte", n: 1, v: 0xab, want: []byte{0xab}},
		{name: "port", n: 2, v: 30021, want: []byte{0x75, 0x45}},
		{name: "three bytes", n: 3, v: 0x010203, want: []byte{0x01, 0x02, 0x03}},
		{name: "length", n: 4, v: 0xdeadbeef, want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "truncates high bytes", n: 2, v: 0x12345678, want: []byte{0x56, 0x78}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := make([]byte, tc.n)
			EncodeUint(got, tc.n, tc.v)
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("EncodeUint(%d, %#x) = %x, want %x", tc.n, tc.v, got, tc.want)
			}
		})
	}
}

func TestUintWidthOutOfRangePanics(t *testing.T) {
	for _, n := range []int{0, 5} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("DecodeUint with width %d did not panic", n)
				}
			}()
			DecodeUint(make([]byte, 8), n)
		}()
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		hdr  Header
	}{
		{name: "list request", hdr: Header{Mode: ModeList, DataPort: 30021, BodyLength: 0}},
		{name: "retrieve request", hdr: Header{Mode: ModeRetrieve, DataPort: 1, BodyLength: 11}},
		{name: "reply max values", hdr: Header{Mode: ModeReply, DataPort: 65535, BodyLength: 1<<32 - 1}},
		{name: "unknown mode passes through", hdr: Header{Mode: 'x', DataPort: 4242, BodyLength: 7}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := EncodeHeader(tc.hdr)
			if got := DecodeHeader(raw[:]); got != tc.hdr {
				t.Fatalf("DecodeHeader(EncodeHeader(%+v)) = %+v", tc.hdr, got)
			}
		})
	}
}

func TestEncodeHeaderErrorZeroesPort(t *testing.T) {
	raw := EncodeHeader(Header{Mode: ModeError, DataPort: 5000, BodyLength: 14})
	want := [HeaderLen]byte{'e', 0, 0, 0, 0, 0, 14}
	if raw != want {
		t.Fatalf("EncodeHeader(error) = %v, want %v", raw, want)
	}
}

func TestDecodeHeaderLayout(t *testing.T) {
	raw := []byte{'g', 0x75, 0x45, 0x00, 0x00, 0x01, 0x00}
	got := DecodeHeader(raw)
	want := Header{Mode: ModeRetrieve, DataPort: 30021, BodyLength: 256}
	if got != want {
		t.Fatalf("DecodeHeader(%x) = %+v, want %+v", raw, got, want)
	}
}
