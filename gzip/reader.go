// Package gzip implements reading of the gzip file format, as specified
// in RFC 1952, wrapping a single RFC 1951 DEFLATE member parsed by the
// sibling flate package.
//
// Only single-member streams are supported: once the first member's
// trailer has been read and verified, subsequent reads return io.EOF even
// if more bytes follow in the underlying reader.
package gzip

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"time"

	"example.com/gunzip/flate"
	"example.com/gunzip/internal/errors"
)

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

// ReaderConfig configures the construction of a Reader.
type ReaderConfig struct {
	// SkipChecksum disables verification of the trailing CRC32 and ISIZE
	// fields against the content actually decompressed. The 8 trailer
	// bytes are still consumed from the underlying reader, so a truncated
	// trailer is still reported as an error.
	SkipChecksum bool

	_ struct{} // Blank field to prevent unkeyed struct literals
}

// Reader decompresses a single gzip member read from an underlying
// io.Reader. The header fields are parsed eagerly in NewReader, so Name,
// Comment, Extra, ModTime, and OS are populated before the first Read.
type Reader struct {
	InputOffset  int64 // Total number of bytes read from the underlying io.Reader
	OutputOffset int64 // Total number of bytes emitted from Read

	ModTime time.Time // Modification time recorded in the header; the Unix epoch if not set
	OS      byte      // Operating system that produced the stream (XFL's neighbor)
	Extra   []byte    // Raw bytes of the optional FEXTRA field, if present
	Name    string    // Original file name, if FNAME was present
	Comment string    // Free-text comment, if FCOMMENT was present

	conf ReaderConfig
	rd   countingReader
	fr   *flate.Reader
	crc  uint32 // Running CRC-32 (IEEE) of bytes emitted so far
	size uint32 // Running count (mod 2^32) of bytes emitted so far
	err  error
}

// NewReader parses the gzip header from r and prepares to decompress the
// member's body. A nil conf is equivalent to a zero ReaderConfig.
func NewReader(r io.Reader, conf *ReaderConfig) (*Reader, error) {
	zr := new(Reader)
	if conf != nil {
		zr.conf = *conf
	}
	zr.rd.init(r)
	if err := zr.readHeader(); err != nil {
		return nil, err
	}
	zr.fr = flate.NewReader(&zr.rd)
	return zr, nil
}

// readHeader parses the fixed 10-byte header and any optional fields
// named by FLG, per RFC 1952 section 2.3.
func (zr *Reader) readHeader() (err error) {
	defer errors.Recover(&err)

	h := crc32.NewIEEE()
	tr := io.TeeReader(&zr.rd, h)

	var hdr [10]byte
	if _, err := io.ReadFull(tr, hdr[:]); err != nil {
		panicf(errors.IO, "unable to read header: %v", ioErr(err))
	}
	if hdr[0] != gzipID1 || hdr[1] != gzipID2 {
		panicf(errors.Invalid, "invalid gzip magic number")
	}
	if hdr[2] != gzipDeflate {
		panicf(errors.Invalid, "unsupported compression method: %d", hdr[2])
	}
	flg := hdr[3]
	zr.ModTime = time.Unix(int64(binary.LittleEndian.Uint32(hdr[4:8])), 0)
	zr.OS = hdr[9]

	if flg&flagExtra != 0 {
		var lenBuf [2]byte
		if _, err := io.ReadFull(tr, lenBuf[:]); err != nil {
			panicf(errors.IO, "unable to read extra field length: %v", ioErr(err))
		}
		zr.Extra = make([]byte, binary.LittleEndian.Uint16(lenBuf[:]))
		if _, err := io.ReadFull(tr, zr.Extra); err != nil {
			panicf(errors.IO, "unable to read extra field: %v", ioErr(err))
		}
	}
	if flg&flagName != 0 {
		name, err := readCString(tr)
		if err != nil {
			panicf(errors.Invalid, "malformed name field: %v", ioErr(err))
		}
		zr.Name = name
	}
	if flg&flagComment != 0 {
		comment, err := readCString(tr)
		if err != nil {
			panicf(errors.Invalid, "malformed comment field: %v", ioErr(err))
		}
		zr.Comment = comment
	}
	if flg&flagHCRC != 0 {
		var hcrcBuf [2]byte
		if _, err := io.ReadFull(&zr.rd, hcrcBuf[:]); err != nil {
			panicf(errors.IO, "unable to read header checksum: %v", ioErr(err))
		}
		gotHCRC := binary.LittleEndian.Uint16(hcrcBuf[:])
		if wantHCRC := uint16(h.Sum32()); gotHCRC != wantHCRC {
			panicf(errors.Invalid, "header checksum mismatch")
		}
	}
	return nil
}

// readCString reads bytes until and including a NUL terminator, returning
// everything before it. There is no length limit beyond the stream itself.
func readCString(r io.Reader) (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}

func ioErr(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Read implements io.Reader, decompressing the member body and, upon
// reaching its end, verifying the trailing CRC32 and ISIZE fields in full
// (all 4 bytes of each, not merely the low 2).
func (zr *Reader) Read(buf []byte) (int, error) {
	if zr.err != nil {
		return 0, zr.err
	}

	n, err := zr.fr.Read(buf)
	if n > 0 {
		zr.crc = crc32.Update(zr.crc, crc32.IEEETable, buf[:n])
		zr.size += uint32(n)
		zr.OutputOffset += int64(n)
	}
	zr.InputOffset = zr.rd.offset
	if err == io.EOF {
		if trailerErr := zr.readTrailer(); trailerErr != nil {
			zr.err = trailerErr
			return n, zr.err
		}
		zr.err = io.EOF
		return n, io.EOF
	}
	if err != nil {
		zr.err = errWrap(err, errors.Corrupted)
		return n, zr.err
	}
	return n, nil
}

// readTrailer reads and, unless configured to skip, verifies the 8-byte
// trailer per RFC 1952 section 2.3.1.
func (zr *Reader) readTrailer() error {
	var trailer [8]byte
	if _, err := io.ReadFull(&zr.rd, trailer[:]); err != nil {
		return errorf(errors.IO, "unable to read trailer: %v", ioErr(err))
	}
	zr.InputOffset = zr.rd.offset
	if zr.conf.SkipChecksum {
		return nil
	}

	gotCRC := binary.LittleEndian.Uint32(trailer[0:4])
	gotSize := binary.LittleEndian.Uint32(trailer[4:8])
	if gotCRC != zr.crc {
		return errorf(errors.Corrupted, "checksum mismatch: got %#08x, want %#08x", zr.crc, gotCRC)
	}
	if gotSize != zr.size {
		return errorf(errors.Corrupted, "size mismatch: got %d, want %d", zr.size, gotSize)
	}
	return nil
}

// Close releases the Reader, reporting any persistent decode error.
func (zr *Reader) Close() error {
	if zr.err == io.EOF {
		return nil
	}
	return zr.err
}

// countingReader tracks how many bytes have been consumed from an
// underlying io.Reader. It implements io.ByteReader, so the flate
// package's bit reader takes bytes from it one at a time and never
// consumes bytes of the trailer that follows the DEFLATE body.
type countingReader struct {
	rd     *bufio.Reader
	offset int64
}

func (cr *countingReader) init(r io.Reader) {
	if br, ok := r.(*bufio.Reader); ok {
		cr.rd = br
	} else {
		cr.rd = bufio.NewReader(r)
	}
	cr.offset = 0
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.rd.Read(p)
	cr.offset += int64(n)
	return n, err
}

func (cr *countingReader) ReadByte() (byte, error) {
	b, err := cr.rd.ReadByte()
	if err == nil {
		cr.offset++
	}
	return b, err
}
