package flate

import "io"

// Reader decompresses a single RFC 1951 DEFLATE stream read from an
// underlying io.Reader.
type Reader struct {
	InputOffset  int64 // Total number of bytes read from the underlying io.Reader
	OutputOffset int64 // Total number of bytes emitted from Read

	src         bitSource // Input source
	pending     []byte    // Uncompressed data ready to be emitted from Read
	matchDist   int       // Distance of the match currently being copied
	rawRemain   int       // Uncompressed bytes left in the current stored block
	matchRemain int       // Bytes left to copy for the current match
	final       bool      // BFINAL was set on the block currently being read
	err         error     // Persistent error, once set Read never recovers

	next  func(*Reader) // Next unit of decompression work; may panic with an error
	phase int           // Sub-state used by decodeBlockBody to resume mid-block

	window   dictDecoder // Sliding window of recently emitted bytes
	litTable huffTable   // Literal/length symbol table for the current block
	distTable huffTable  // Distance symbol table for the current block
}

// NewReader returns a Reader that decompresses DEFLATE data read from r.
func NewReader(r io.Reader) *Reader {
	fr := new(Reader)
	fr.Reset(r)
	return fr
}

// Read implements io.Reader. It decompresses incrementally, doing no more
// work per call than is needed to produce some output (or hit an error).
func (fr *Reader) Read(buf []byte) (int, error) {
	for {
		if len(fr.pending) > 0 {
			cnt := copy(buf, fr.pending)
			fr.pending = fr.pending[cnt:]
			fr.OutputOffset += int64(cnt)
			return cnt, nil
		}
		if fr.err != nil {
			return 0, fr.err
		}

		fr.InputOffset = fr.src.SyncOffset()
		func() {
			defer recoverError(&fr.err)
			fr.next(fr)
		}()
		fr.InputOffset = fr.src.SyncOffset()
		if fr.err != nil {
			fr.pending = fr.window.ReadFlush() // Hand back whatever survived
		}
	}
}

// Close marks a Reader that already reached a clean end of stream as
// closed and returns nil; repeated Close calls on it are idempotent. For
// any other Reader, Close changes nothing and returns the pending error,
// which is nil if decoding has not yet stopped.
func (fr *Reader) Close() error {
	if fr.err == io.EOF || fr.err == io.ErrClosedPipe {
		fr.pending = nil
		fr.err = io.ErrClosedPipe
		return nil
	}
	return fr.err
}

// Reset discards all decompression state and reconfigures fr to read a new
// stream from r, reusing fr's internal buffers where possible.
func (fr *Reader) Reset(r io.Reader) error {
	*fr = Reader{
		src:    fr.src,
		next:   (*Reader).decodeBlockHeader,
		window: fr.window,
	}
	fr.src.Attach(r)
	fr.window.Init(slidingWindowSize)
	return nil
}

// decodeBlockHeader reads a block header per RFC 1951 section 3.2.3 and
// dispatches to whichever step handles that block's body.
func (fr *Reader) decodeBlockHeader() {
	if fr.final {
		fr.src.AlignByte()
		panic(io.EOF)
	}

	fr.final = fr.src.Bits(1) == 1
	switch fr.src.Bits(2) {
	case 0:
		// Stored block (RFC 1951 section 3.2.4): BTYPE bits are followed by
		// padding to the next byte boundary, then LEN and its complement.
		fr.src.AlignByte()

		n := uint16(fr.src.Bits(16))
		nn := uint16(fr.src.Bits(16))
		if n^nn != 0xffff {
			panic(ErrCorrupt)
		}
		fr.rawRemain = int(n)

		if fr.rawRemain == 0 {
			fr.pending = fr.window.ReadFlush()
			fr.next = (*Reader).decodeBlockHeader
			return
		}
		fr.next = (*Reader).copyStoredBlock
	case 1:
		// Fixed Huffman block (RFC 1951 section 3.2.6): tables never vary.
		fr.litTable, fr.distTable = fixedLitTable, fixedDistTable
		fr.next = (*Reader).decodeBlockBody
	case 2:
		// Dynamic Huffman block (RFC 1951 section 3.2.7): tables are
		// transmitted up front.
		fr.src.DecodeTables(&fr.litTable, &fr.distTable)
		fr.next = (*Reader).decodeBlockBody
	default:
		panic(ErrCorrupt) // BTYPE 11 is reserved
	}
}

// copyStoredBlock transfers an uncompressed block straight into the sliding
// window, per RFC 1951 section 3.2.4.
func (fr *Reader) copyStoredBlock() {
	buf := fr.window.WriteSlice()
	if len(buf) > fr.rawRemain {
		buf = buf[:fr.rawRemain]
	}

	cnt, err := fr.src.Read(buf)
	fr.rawRemain -= cnt
	fr.window.WriteMark(cnt)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		panic(err)
	}

	if fr.rawRemain > 0 {
		fr.pending = fr.window.ReadFlush()
		fr.next = (*Reader).copyStoredBlock // More of this block remains
		return
	}
	fr.next = (*Reader).decodeBlockHeader
}

// Sub-states for decodeBlockBody, tracking which goto label to resume at
// after a partial window flush. phaseSymbol is the zero value so a fresh
// Reader (or one just past decodeBlockHeader) always starts there.
const (
	phaseSymbol = iota
	phaseMatch
)

// decodeBlockBody alternates between reading literal/length/distance
// symbols and performing the back-reference copies they describe, per
// RFC 1951 section 3.2.3, pausing whenever the sliding window fills.
func (fr *Reader) decodeBlockBody() {
	switch fr.phase {
	case phaseSymbol:
		goto decodeSymbol
	case phaseMatch:
		goto expandMatch
	}

decodeSymbol:
	{
		if fr.window.AvailSize() == 0 {
			fr.pending = fr.window.ReadFlush()
			fr.next = (*Reader).decodeBlockBody
			fr.phase = phaseSymbol
			return
		}

		sym, ok := fr.src.TrySymbol(&fr.litTable)
		if !ok {
			sym = fr.src.Symbol(&fr.litTable)
		}
		switch {
		case sym < symEndOfBlock:
			fr.window.WriteByte(byte(sym))
			goto decodeSymbol
		case sym == symEndOfBlock:
			fr.next = (*Reader).decodeBlockHeader
			fr.phase = phaseSymbol
			return
		case sym < maxLitAlphabet:
			rec := lengthTable[sym-257]
			extra, ok := fr.src.TryBits(uint(rec.extra))
			if !ok {
				extra = fr.src.Bits(uint(rec.extra))
			}
			fr.matchRemain = int(rec.base) + int(extra)

			distSym, ok := fr.src.TrySymbol(&fr.distTable)
			if !ok {
				distSym = fr.src.Symbol(&fr.distTable)
			}
			if distSym >= maxDistAlphabet {
				panic(ErrCorrupt)
			}

			rec = distanceTable[distSym]
			extra, ok = fr.src.TryBits(uint(rec.extra))
			if !ok {
				extra = fr.src.Bits(uint(rec.extra))
			}
			fr.matchDist = int(rec.base) + int(extra)

			goto expandMatch
		default:
			panic(ErrCorrupt)
		}
	}

expandMatch:
	{
		cnt := fr.window.WriteCopy(fr.matchDist, fr.matchRemain)
		fr.matchRemain -= cnt

		if fr.matchRemain > 0 {
			fr.pending = fr.window.ReadFlush()
			fr.next = (*Reader).decodeBlockBody
			fr.phase = phaseMatch
			return
		}
		goto decodeSymbol
	}
}
