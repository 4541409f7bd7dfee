package flate

// dictDecoder implements the sliding dictionary used by LZ77 decoders such
// as flate. It keeps the most recently written slidingWindowSize bytes in a
// circular buffer, re-derivable purely from the byte stream itself, so
// that later back-references can copy out of it.
type dictDecoder struct {
	hist []byte // Sliding window history

	wrPos int  // Current output position in buffer
	rdPos int  // Have emitted out to this position
	full  bool // Has a full window length been written yet?
}

// Init resets the dictionary to an empty history of the given size.
func (dd *dictDecoder) Init(size int) {
	*dd = dictDecoder{hist: dd.hist}
	if cap(dd.hist) < size {
		dd.hist = make([]byte, size)
	} else {
		dd.hist = dd.hist[:size]
	}
}

// HistSize reports the number of bytes of valid history currently held.
func (dd *dictDecoder) HistSize() int {
	if dd.full {
		return len(dd.hist)
	}
	return dd.wrPos
}

// AvailSize reports the number of bytes that can still be written to the
// buffer before it must be flushed via ReadFlush.
func (dd *dictDecoder) AvailSize() int {
	return len(dd.hist) - dd.wrPos
}

// WriteSlice returns a slice of the unused portion of the buffer that the
// caller may write into directly, followed by a call to WriteMark.
func (dd *dictDecoder) WriteSlice() []byte {
	return dd.hist[dd.wrPos:]
}

// WriteMark advances the write position after a direct write into the
// slice returned by WriteSlice.
func (dd *dictDecoder) WriteMark(cnt int) {
	dd.wrPos += cnt
}

// WriteByte appends a single literal byte to the buffer.
func (dd *dictDecoder) WriteByte(c byte) {
	dd.hist[dd.wrPos] = c
	dd.wrPos++
}

// WriteCopy copies a length-distance back-reference into the buffer,
// emitting as many of the length bytes as fit before the buffer must be
// flushed, and returns the number of bytes actually copied.
//
// When length exceeds dist the source and destination ranges of this
// single call would overlap; each copy below instead reads only the
// portion already written earlier in this very call, so every individual
// copy is non-overlapping even though, across iterations, it reproduces
// bytes written moments before by the same call.
func (dd *dictDecoder) WriteCopy(dist, length int) int {
	if dist <= 0 || dist > dd.HistSize() {
		panic(ErrDistanceTooFar)
	}

	dstBase := dd.wrPos
	dstPos := dstBase
	srcPos := dstPos - dist
	endPos := dstPos + length
	if endPos > len(dd.hist) {
		endPos = len(dd.hist)
	}

	if srcPos < 0 {
		srcPos += len(dd.hist)
		dstPos += copy(dd.hist[dstPos:endPos], dd.hist[srcPos:])
		srcPos = 0
	}
	for dstPos < endPos {
		dstPos += copy(dd.hist[dstPos:endPos], dd.hist[srcPos:dstPos])
	}

	dd.wrPos = dstPos
	return dstPos - dstBase
}

// ReadFlush returns the bytes written since the last call to ReadFlush,
// wrapping the write position back to the start of the buffer once it
// fills, at which point the history is considered full.
func (dd *dictDecoder) ReadFlush() []byte {
	toRead := dd.hist[dd.rdPos:dd.wrPos]
	dd.rdPos = dd.wrPos
	if dd.wrPos == len(dd.hist) {
		dd.wrPos, dd.rdPos = 0, 0
		dd.full = true
	}
	return toRead
}
