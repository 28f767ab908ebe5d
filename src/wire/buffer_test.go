package wire

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBufferGrowth(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		appends []int
		wantCap int
	}{
		{name: "fits without growth", initial: 8, appends: []int{3, 5}, wantCap: 8},
		{name: "single byte overflow doubles", initial: 4, appends: []int{4, 1}, wantCap: 8},
		{name: "large append doubles until it fits", initial: 4, appends: []int{1, 30}, wantCap: 32},
		{name: "repeated overflow", initial: 2, appends: []int{1, 1, 1, 1, 1}, wantCap: 8},
		{name: "zero initial uses default", initial: 0, appends: []int{10}, wantCap: DefaultBufferCap},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuffer(tc.initial)
			var want []byte
			var next byte
			for _, n := range tc.appends {
				chunk := make([]byte, n)
				for i := range chunk {
					chunk[i] = next
					next++
				}
				if n == 1 {
					b.AppendByte(chunk[0])
				} else {
					b.AppendBytes(chunk)
				}
				want = append(want, chunk...)
			}
			if b.Cap() != tc.wantCap {
				t.Fatalf("Cap() = %d, want %d", b.Cap(), tc.wantCap)
			}
			if b.Len() != len(want) {
				t.Fatalf("Len() = %d, want %d", b.Len(), len(want))
			}
			if !bytes.Equal(b.Bytes(), want) {
				t.Fatalf("Bytes() = %v, want %v", b.Bytes(), want)
			}
		})
	}
}

func TestBufferPreservesOrderAcrossManyAppends(t *testing.T) {
	b := NewBuffer(1)
	var want bytes.Buffer
	for size := 1; size <= 300; size += 7 {
		chunk := bytes.Repeat([]byte{byte(size)}, size)
		b.AppendBytes(chunk)
		want.Write(chunk)
		if b.Cap() < b.Len() {
			t.Fatalf("Cap() = %d below Len() = %d", b.Cap(), b.Len())
		}
	}
	if !bytes.Equal(b.Bytes(), want.Bytes()) {
		t.Fatal("buffer contents diverged from appended sequence")
	}
}

func TestBufferClearKeepsCapacity(t *testing.T) {
	b := NewBuffer(4)
	b.AppendString("directory listing")
	capBefore := b.Cap()

	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", b.Len())
	}
	if b.Cap() != capBefore {
		t.Fatalf("Cap() after Clear = %d, want %d", b.Cap(), capBefore)
	}

	b.AppendString("FILE NOT FOUND")
	if got := b.String(); got != "FILE NOT FOUND" {
		t.Fatalf("String() = %q, want %q", got, "FILE NOT FOUND")
	}
}

func TestBufferReleaseThenReuse(t *testing.T) {
	b := NewBuffer(16)
	b.AppendString("abc")
	b.Release()
	if b.Len() != 0 || b.Cap() != 0 {
		t.Fatalf("after Release Len() = %d Cap() = %d, want 0 0", b.Len(), b.Cap())
	}
	b.AppendByte('z')
	if b.String() != "z" || b.Cap() != DefaultBufferCap {
		t.Fatalf("reuse after Release: %q cap %d", b.String(), b.Cap())
	}
}

func TestBufferAsWriter(t *testing.T) {
	src := strings.Repeat("0123456789", 100)
	b := NewBuffer(8)
	n, err := io.Copy(b, strings.NewReader(src))
	if err != nil {
		t.Fatalf("io.Copy: %v", err)
	}
	if n != int64(len(src)) || b.String() != src {
		t.Fatalf("copied %d bytes, contents match = %v", n, b.String() == src)
	}
}
