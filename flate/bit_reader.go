package flate

import "io"
import "bufio"

// bitSource never consumes more bytes from the underlying reader than the
// bitstream actually needs, provided that reader implements io.ByteReader;
// any other reader is wrapped in a bufio.Reader, which may read ahead of
// the bitstream. That precision costs performance, since every
// byte would otherwise come through a single ReadByte call and symbol
// decoding in Symbol often needs several attempts before the code length is
// known.
//
// To claw back speed, when the source is already a *bufio.Reader, bitSource
// fills its buffer straight from the bufio.Reader's own Peek/Discard pair
// instead of one byte at a time, so TryBits and TrySymbol usually succeed on
// their first attempt.
type byteFeed interface {
	io.Reader
	io.ByteReader
}

type bitSource struct {
	src    byteFeed
	bitBuf uint64 // Buffered bits, next bit to consume in position 0
	bitCnt uint   // Number of valid bits in bitBuf
	bytePos int64 // Bytes consumed so far from src

	// Populated only when src is a *bufio.Reader.
	fastSrc        *bufio.Reader
	peeked         []byte // Unconsumed bytes returned by the last Peek
	pendingDiscard int    // Bits owed to fastSrc.Discard
	primedBits     uint   // bitCnt as of the last fill call

	scratch huffTable // Reused across calls to avoid reallocating
}

// Attach points the source at r, discarding any prior state.
func (bs *bitSource) Attach(r io.Reader) {
	*bs = bitSource{scratch: bs.scratch}
	if rr, ok := r.(byteFeed); ok {
		bs.src = rr
	} else {
		bs.src = bufio.NewReader(r)
	}
	if brd, ok := bs.src.(*bufio.Reader); ok {
		bs.fastSrc = brd
	}
}

// SyncOffset reconciles bytePos with how many bits have actually been
// consumed, discarding the corresponding bytes from fastSrc if present, and
// returns the resulting count of bytes read from the original source.
func (bs *bitSource) SyncOffset() int64 {
	if bs.fastSrc == nil {
		return bs.bytePos
	}

	bs.pendingDiscard += int(bs.primedBits - bs.bitCnt)
	bs.primedBits = bs.bitCnt

	nd := (bs.pendingDiscard + 7) / 8 // Round up to the nearest byte
	nd, _ = bs.fastSrc.Discard(nd)
	bs.pendingDiscard -= nd * 8 // Remainder is always in -7..0
	bs.bytePos += int64(nd)

	bs.peeked = nil // Invalid once Discard has run
	return bs.bytePos
}

// fill ensures at least nb bits are buffered, blocking on the underlying
// reader if necessary.
func (bs *bitSource) fill(nb uint) {
	if bs.fastSrc == nil {
		for bs.bitCnt < nb {
			c, err := bs.src.ReadByte()
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				panic(err)
			}
			bs.bitBuf |= uint64(c) << bs.bitCnt
			bs.bitCnt += 8
			bs.bytePos++
		}
		return
	}

	bs.pendingDiscard += int(bs.primedBits - bs.bitCnt)
	for {
		if len(bs.peeked) == 0 {
			bs.primedBits = bs.bitCnt // Don't discard bits just buffered
			bs.SyncOffset()

			want := 8 // Smallest Peek that guarantees progress
			if bs.fastSrc.Buffered() > want {
				want = bs.fastSrc.Buffered()
			}
			var err error
			bs.peeked, err = bs.fastSrc.Peek(want)
			bs.peeked = bs.peeked[int(bs.bitCnt/8):] // Skip already-buffered bits
			if len(bs.peeked) == 0 {
				if bs.bitCnt >= nb {
					break
				}
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				panic(err)
			}
		}
		take := int(64-bs.bitCnt) / 8
		if take > len(bs.peeked) {
			take = len(bs.peeked)
		}
		for _, c := range bs.peeked[:take] {
			bs.bitBuf |= uint64(c) << bs.bitCnt
			bs.bitCnt += 8
		}
		bs.peeked = bs.peeked[take:]
		if bs.bitCnt > 56 {
			break
		}
	}
	bs.primedBits = bs.bitCnt
}

// Read drains whole buffered bytes first, then reads directly from the
// source; it requires the buffer to currently hold a whole number of bytes.
func (bs *bitSource) Read(buf []byte) (cnt int, err error) {
	if bs.bitCnt%8 != 0 {
		return 0, Error("non-aligned bit buffer")
	}
	if bs.bitCnt > 0 {
		for cnt = 0; len(buf) > cnt && bs.bitCnt > 0; cnt++ {
			buf[cnt] = byte(bs.bitBuf)
			bs.bitBuf >>= 8
			bs.bitCnt -= 8
		}
		return cnt, nil
	}
	bs.SyncOffset()
	cnt, err = bs.src.Read(buf)
	bs.bytePos += int64(cnt)
	return cnt, err
}

// TryBits reads nb bits using only what is already buffered, never
// blocking; ok is false if that is not enough bits.
//
// Written to be a good inlining candidate on the hot path.
func (bs *bitSource) TryBits(nb uint) (val uint, ok bool) {
	if bs.bitCnt < nb {
		return 0, false
	}
	val = uint(bs.bitBuf & uint64(1<<nb-1))
	bs.bitBuf >>= nb
	bs.bitCnt -= nb
	return val, true
}

// Bits reads nb bits, assembled LSB-first (the first bit consumed becomes
// bit 0), blocking on the source if not enough bits are buffered.
func (bs *bitSource) Bits(nb uint) uint {
	bs.fill(nb)
	val := uint(bs.bitBuf & uint64(1<<nb-1))
	bs.bitBuf >>= nb
	bs.bitCnt -= nb
	return val
}

// AlignByte discards the 0-7 bits needed to reach the next byte boundary,
// returning the bits discarded.
func (bs *bitSource) AlignByte() uint {
	nb := bs.bitCnt % 8
	val := uint(bs.bitBuf & uint64(1<<nb-1))
	bs.bitBuf >>= nb
	bs.bitCnt -= nb
	return val
}

// TrySymbol decodes one symbol from h using only what is already buffered,
// never blocking; ok is false if more bits must first be fed in.
//
// Written to be a good inlining candidate on the hot path.
func (bs *bitSource) TrySymbol(h *huffTable) (uint, bool) {
	if bs.bitCnt < uint(h.minCodeBits) || len(h.fast) == 0 {
		return 0, false
	}
	entry := h.fast[uint32(bs.bitBuf)&h.fastMask]
	nb := uint(entry & tableCountMask)
	if nb > bs.bitCnt || nb > uint(h.fastBits) {
		return 0, false
	}
	bs.bitBuf >>= nb
	bs.bitCnt -= nb
	return uint(entry >> tableCountBits), true
}

// Symbol decodes the next symbol encoded by h, blocking on the source as
// needed. It never reads past the last byte a conforming stream requires.
func (bs *bitSource) Symbol(h *huffTable) uint {
	if len(h.fast) == 0 {
		panic(ErrCorrupt) // Attempted decode against an empty table
	}

	nb := uint(h.minCodeBits)
	for {
		bs.fill(nb)
		entry := h.fast[uint32(bs.bitBuf)&h.fastMask]
		nb = uint(entry & tableCountMask)
		if nb > uint(h.fastBits) {
			overflowIdx := entry >> tableCountBits
			entry = h.overflow[overflowIdx][uint32(bs.bitBuf>>h.fastBits)&h.overflowMask]
			nb = uint(entry & tableCountMask)
		}
		if nb <= bs.bitCnt {
			bs.bitBuf >>= nb
			bs.bitCnt -= nb
			return uint(entry >> tableCountBits)
		}
	}
}

// DecodeTables reads the dynamic-block header (HLIT, HDIST, HCLEN and the
// code-length alphabet) and builds the resulting literal/length and
// distance tables in hl and hd, per RFC 1951 section 3.2.7.
func (bs *bitSource) DecodeTables(hl, hd *huffTable) {
	numLitSyms := bs.Bits(5) + 257
	numDistSyms := bs.Bits(5) + 1
	numCLenSyms := bs.Bits(4) + 4
	if numLitSyms > maxLitAlphabet || numDistSyms > maxDistAlphabet {
		panic(ErrCorrupt)
	}

	// Decode the code-length alphabet itself.
	var clenArr [maxCLenAlphabet]huffSym // Indexed by symbol; may have holes
	for _, sym := range clenPermutation[:numCLenSyms] {
		nb := bs.Bits(3)
		if nb > 0 {
			clenArr[sym] = huffSym{symbol: uint32(sym), bits: uint32(nb)}
		}
	}
	clenCodes := clenArr[:0] // Compact away the holes
	for _, c := range clenArr {
		if c.bits > 0 {
			clenCodes = append(clenCodes, c)
		}
	}
	clenCodes = patchSingleCodeTable(clenCodes, maxCLenAlphabet)
	bs.scratch.Build(clenCodes, true)

	// Use that alphabet to decode the literal/length and distance lengths,
	// transmitted back to back as one vector.
	var allArr [maxLitAlphabet + maxDistAlphabet]huffSym
	var lastLen uint
	litCodes := allArr[:0]
	distCodes := allArr[maxLitAlphabet:maxLitAlphabet]
	record := func(sym, nb uint) {
		if sym < numLitSyms {
			litCodes = append(litCodes, huffSym{symbol: uint32(sym), bits: uint32(nb)})
		} else {
			distCodes = append(distCodes, huffSym{symbol: uint32(sym - numLitSyms), bits: uint32(nb)})
		}
	}
	for sym, total := uint(0), numLitSyms+numDistSyms; sym < total; {
		nb := bs.Symbol(&bs.scratch)
		if nb < 16 {
			if nb > 0 {
				record(sym, nb)
			}
			lastLen = nb
			sym++
			continue
		}

		var repeat uint
		switch nb {
		case 16:
			if sym == 0 {
				panic(ErrCorrupt)
			}
			nb = lastLen
			repeat = 3 + bs.Bits(2)
		case 17:
			nb = 0
			repeat = 3 + bs.Bits(3)
		case 18:
			nb = 0
			repeat = 11 + bs.Bits(7)
		default:
			panic(ErrCorrupt)
		}

		if nb > 0 {
			for end := sym + repeat; sym < end; sym++ {
				record(sym, nb)
			}
		} else {
			sym += repeat
		}
		if sym > total {
			panic(ErrCorrupt)
		}
	}

	litCodes = patchSingleCodeTable(litCodes, maxLitAlphabet)
	hl.Build(litCodes, true)
	distCodes = patchSingleCodeTable(distCodes, maxDistAlphabet)
	hd.Build(distCodes, true)

	// Every block ends with an end-of-block symbol, so once we know its
	// length we can demand that many bits up front and never overshoot past
	// the end of a conforming stream. Skip this when fastSrc is in play,
	// since fill already grabs as much as it can regardless.
	if bs.fastSrc == nil {
		for i := len(litCodes) - 1; i >= 0; i-- {
			if litCodes[i].symbol == symEndOfBlock && litCodes[i].bits > 0 {
				hl.minCodeBits = litCodes[i].bits
				break
			}
		}
	}
}

// patchSingleCodeTable works around RFC 1951 section 3.2.7's rule that a
// degenerate one-symbol tree still reserves one bit, leaving the "1" branch
// unused: the canonical-code assignment algorithm requires at least two
// codes to produce a valid (complete) tree, so a phantom symbol one past the
// real alphabet is inserted to occupy the "1" branch. If it is ever actually
// read, that is necessarily a malformed stream, and decoding treats the
// phantom symbol as out of range.
func patchSingleCodeTable(codes []huffSym, maxSyms uint) []huffSym {
	if len(codes) != 1 {
		return codes
	}
	return append(codes, huffSym{symbol: uint32(maxSyms), bits: 1})
}
