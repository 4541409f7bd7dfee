package gzip

import (
	"bytes"
	"compress/gzip"
	"encoding/hex"
	"hash/crc32"
	"io"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// TestEmptyMember decodes the canonical 20-byte empty gzip member: a
// 10-byte header with no optional fields, a 2-byte fixed block containing
// only the end-of-block symbol, and an all-zero trailer.
func TestEmptyMember(t *testing.T) {
	const input = "1f8b08000000000000030300" + "0000000000000000"
	data, err := hex.DecodeString(input)
	if err != nil {
		t.Fatalf("bad test hex: %v", err)
	}

	zr, err := NewReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("NewReader error: %v", err)
	}
	output, err := ioutil.ReadAll(zr)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if len(output) != 0 {
		t.Fatalf("output mismatch: got %d bytes, want 0", len(output))
	}
}

// TestHelloWorld decodes a member whose body is a single stored (BTYPE=00)
// block, confirming this repository accepts stored blocks and verifies
// the full 4-byte CRC32/ISIZE trailer.
func TestHelloWorld(t *testing.T) {
	const payload = "Hello, world!\n"

	var body bytes.Buffer
	body.WriteByte(1)                                 // BFINAL=1, BTYPE=00 (stored), byte-aligned
	writeUint16LE(&body, uint16(len(payload)))         // LEN
	writeUint16LE(&body, uint16(len(payload))^0xffff)  // NLEN
	body.WriteString(payload)

	var buf bytes.Buffer
	buf.Write([]byte{gzipID1, gzipID2, gzipDeflate, 0})
	writeUint32LE(&buf, 0) // MTIME
	buf.WriteByte(0)       // XFL
	buf.WriteByte(3)       // OS
	buf.Write(body.Bytes())
	writeUint32LE(&buf, crc32.ChecksumIEEE([]byte(payload)))
	writeUint32LE(&buf, uint32(len(payload)))

	zr, err := NewReader(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatalf("NewReader error: %v", err)
	}
	output, err := ioutil.ReadAll(zr)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(output) != payload {
		t.Fatalf("output mismatch: got %q, want %q", output, payload)
	}
}

// TestName checks that FNAME is parsed with no length limit, unlike the
// 255-byte cap this repository's design notes flag as a bug to avoid.
func TestName(t *testing.T) {
	name := strings.Repeat("x", 1000)

	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		t.Fatalf("NewWriterLevel error: %v", err)
	}
	gw.Name = name
	if _, err := gw.Write([]byte("payload")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	zr, err := NewReader(&buf, nil)
	if err != nil {
		t.Fatalf("NewReader error: %v", err)
	}
	if zr.Name != name {
		t.Fatalf("name mismatch: got %d bytes, want %d bytes", len(zr.Name), len(name))
	}
	if _, err := ioutil.ReadAll(zr); err != nil {
		t.Fatalf("read error: %v", err)
	}
}

// TestHeaderFields checks that the optional metadata fields set by a real
// encoder round-trip through this Reader unchanged.
func TestHeaderFields(t *testing.T) {
	modTime := time.Unix(1700000000, 0)

	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		t.Fatalf("NewWriterLevel error: %v", err)
	}
	gw.Name = "report.txt"
	gw.Comment = "generated for testing"
	gw.ModTime = modTime
	gw.OS = 3 // unix
	if _, err := gw.Write([]byte("field data")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	zr, err := NewReader(&buf, nil)
	if err != nil {
		t.Fatalf("NewReader error: %v", err)
	}
	if _, err := ioutil.ReadAll(zr); err != nil {
		t.Fatalf("read error: %v", err)
	}

	want := Reader{Name: "report.txt", Comment: "generated for testing", ModTime: modTime, OS: 3}
	opts := cmpopts.IgnoreFields(Reader{},
		"InputOffset", "OutputOffset", "Extra", "conf", "rd", "fr", "crc", "size", "err")
	if diff := cmp.Diff(want, *zr, opts); diff != "" {
		t.Errorf("header field mismatch (-want +got):\n%s", diff)
	}
}

// TestChecksumMismatch checks that a member whose trailing CRC32 does not
// match the decompressed content is reported, exercising the full 4-byte
// comparison this repository's design notes flag as missing from the
// original source (which compared only 2 of each 4-byte trailer field).
func TestChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	gw, _ := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	gw.Write([]byte("payload"))
	gw.Close()

	data := buf.Bytes()
	data[len(data)-5] ^= 0xff // flip a high byte of the stored CRC32

	zr, err := NewReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("NewReader error: %v", err)
	}
	_, err = ioutil.ReadAll(zr)
	if err == nil {
		t.Fatalf("expected checksum error, got nil")
	}
}

// TestSkipChecksum checks that ReaderConfig.SkipChecksum suppresses the
// comparison (but still consumes the trailer) when a caller opts out.
func TestSkipChecksum(t *testing.T) {
	var buf bytes.Buffer
	gw, _ := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	gw.Write([]byte("payload"))
	gw.Close()

	data := buf.Bytes()
	data[len(data)-5] ^= 0xff

	zr, err := NewReader(bytes.NewReader(data), &ReaderConfig{SkipChecksum: true})
	if err != nil {
		t.Fatalf("NewReader error: %v", err)
	}
	if _, err := ioutil.ReadAll(zr); err != nil {
		t.Fatalf("unexpected error with SkipChecksum: %v", err)
	}
}

// TestRoundTrip decodes a selection of real compress/gzip outputs across
// sizes and compression levels.
func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("a"),
		bytes.Repeat([]byte("gophers are cute\n"), 500),
	}
	levels := []int{gzip.BestSpeed, gzip.DefaultCompression, gzip.BestCompression}

	for i, input := range inputs {
		for _, level := range levels {
			var buf bytes.Buffer
			gw, err := gzip.NewWriterLevel(&buf, level)
			if err != nil {
				t.Fatalf("test %d, level %d: NewWriterLevel error: %v", i, level, err)
			}
			if _, err := gw.Write(input); err != nil {
				t.Fatalf("test %d, level %d: write error: %v", i, level, err)
			}
			if err := gw.Close(); err != nil {
				t.Fatalf("test %d, level %d: close error: %v", i, level, err)
			}

			zr, err := NewReader(&buf, nil)
			if err != nil {
				t.Fatalf("test %d, level %d: NewReader error: %v", i, level, err)
			}
			output, err := ioutil.ReadAll(zr)
			if err != nil {
				t.Fatalf("test %d, level %d: read error: %v", i, level, err)
			}
			if !bytes.Equal(output, input) {
				t.Fatalf("test %d, level %d: output mismatch", i, level)
			}
		}
	}
}

// TestTruncated checks that a member cut off anywhere in its trailer is
// reported as an error rather than silently succeeding.
func TestTruncated(t *testing.T) {
	var buf bytes.Buffer
	gw, _ := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	gw.Write([]byte("hello"))
	gw.Close()

	full := buf.Bytes()
	for n := len(full) - 1; n > len(full)-8; n-- {
		zr, err := NewReader(bytes.NewReader(full[:n]), nil)
		if err != nil {
			continue // A header-only truncation fails in NewReader itself.
		}
		if _, err := ioutil.ReadAll(zr); err == nil {
			t.Errorf("truncation at %d bytes: expected error, got nil", n)
		}
	}
}

func writeUint16LE(w *bytes.Buffer, v uint16) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
}

func writeUint32LE(w *bytes.Buffer, v uint32) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 24))
}

var _ io.Reader = (*Reader)(nil)
