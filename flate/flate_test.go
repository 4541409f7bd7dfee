package flate

import (
	"bytes"
	"compress/flate"
	"io"
	"io/ioutil"
	"math/rand"
	"testing"
)

// genRepeats produces data that favors LZ77 back-references: mostly short
// random runs interleaved with copies from earlier in the buffer, mirroring
// the kind of input a dynamic Huffman block is built to compress well.
func genRepeats(seed int64, size int) []byte {
	r := rand.New(rand.NewSource(seed))
	randLen := func() int { return 4 + r.Intn(128) }
	randDist := func(have int) int {
		d := 0
		for d == 0 || d > have {
			d = 1 + r.Intn(4096)
		}
		return d
	}

	b := make([]byte, 0, size)
	for i := 0; i < randLen(); i++ {
		b = append(b, byte(r.Intn(256)))
	}
	for len(b) < size {
		if r.Float32() < 0.25 || len(b) == 0 {
			for i, n := 0, randLen(); i < n; i++ {
				b = append(b, byte(r.Intn(256)))
			}
			continue
		}
		d, n := randDist(len(b)), randLen()
		for i := 0; i < n; i++ {
			b = append(b, b[len(b)-d])
		}
	}
	return b[:size]
}

// TestRoundTrip feeds data compressed by the standard library's flate
// writer, at a variety of compression levels, through this package's
// Reader and checks for byte-exact recovery. HuffmanOnly emits blocks with
// no back-references (literal-only dynamic, stored, or fixed blocks); the
// other levels also exercise back-references.
func TestRoundTrip(t *testing.T) {
	var inputs = [][]byte{
		nil,
		[]byte("Hello, world!\n"),
		bytes.Repeat([]byte("AAAAAAAAAA"), 1000),
		genRepeats(1, 1<<16),
		genRepeats(2, 1<<12),
	}

	var levels = []int{
		flate.HuffmanOnly,
		flate.BestSpeed,
		flate.DefaultCompression,
		flate.BestCompression,
	}

	for i, input := range inputs {
		for _, level := range levels {
			var buf bytes.Buffer
			wr, err := flate.NewWriter(&buf, level)
			if err != nil {
				t.Fatalf("test %d, level %d: NewWriter error: %v", i, level, err)
			}
			if _, err := wr.Write(input); err != nil {
				t.Fatalf("test %d, level %d: write error: %v", i, level, err)
			}
			if err := wr.Close(); err != nil {
				t.Fatalf("test %d, level %d: close error: %v", i, level, err)
			}

			// A canary byte after the stream must never be consumed.
			buf.WriteByte(0x7a)

			rd := NewReader(&buf)
			output, err := ioutil.ReadAll(rd)
			if err != nil {
				t.Errorf("test %d, level %d: read error: %v", i, level, err)
			}
			if !bytes.Equal(output, input) {
				t.Errorf("test %d, level %d: output mismatch", i, level)
			}
			if v, _ := buf.ReadByte(); v != 0x7a {
				t.Errorf("test %d, level %d: Read consumed more data than necessary", i, level)
			}
		}
	}
}

// TestOverlapCopy exercises the exponential-doubling overlap copy with the
// maximum single-symbol length (258) at the minimum distance (1), which a
// naive non-overlap-aware copy would get wrong.
func TestOverlapCopy(t *testing.T) {
	wr := newFixedBlockWriter()
	wr.writeLiteral('A')
	wr.writeMatch(258, 1)
	wr.writeEndOfBlock()

	rd := NewReader(bytes.NewReader(wr.Bytes()))
	output, err := ioutil.ReadAll(rd)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	want := bytes.Repeat([]byte("A"), 259)
	if !bytes.Equal(output, want) {
		t.Fatalf("output mismatch: got %d bytes, want %d bytes", len(output), len(want))
	}
}

// TestDistanceTooFar checks that a back-reference pointing further back
// than any byte yet emitted is rejected, rather than silently reading
// uninitialized or stale buffer contents.
func TestDistanceTooFar(t *testing.T) {
	wr := newFixedBlockWriter()
	wr.writeLiteral('A')
	wr.writeMatch(3, 2) // distance 2, but only 1 byte has been emitted
	wr.writeEndOfBlock()

	rd := NewReader(bytes.NewReader(wr.Bytes()))
	_, err := io.Copy(ioutil.Discard, rd)
	if err != ErrDistanceTooFar {
		t.Fatalf("error mismatch: got %v, want %v", err, ErrDistanceTooFar)
	}
}

// TestReservedBlockType checks that BTYPE 11 is rejected before any output
// is produced.
func TestReservedBlockType(t *testing.T) {
	bw := new(bitWriter)
	bw.writeBits(1, 1) // BFINAL
	bw.writeBits(3, 2) // BTYPE = 11 (reserved)
	bw.align()

	rd := NewReader(bytes.NewReader(bw.Bytes()))
	n, err := io.Copy(ioutil.Discard, rd)
	if err != ErrCorrupt {
		t.Fatalf("error mismatch: got %v, want %v", err, ErrCorrupt)
	}
	if n != 0 {
		t.Fatalf("output mismatch: got %d bytes, want 0", n)
	}
}
