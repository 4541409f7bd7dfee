package flate

import "math"

// A table entry packs a decoded symbol in the high bits and the number of
// bits its code occupies in the low bits, so a single slice lookup yields
// both the symbol and how far to advance the bit source.
const (
	tableCountBits = 4
	tableCountMask = (1 << tableCountBits) - 1
	maxFastBits    = 9 // Width of the first-level table; tunable
)

// huffTable decodes a canonical Huffman code via a two-level lookup: a
// first-level table directly indexed by the next fastBits bits of the
// bit-reversed code, and, for codes longer than that, a per-entry overflow
// table indexed by the remaining bits. Building one from a set of
// (symbol, bit length) pairs is what turns a transmitted code-length vector
// into something Symbol/TrySymbol can decode from in O(1).
type huffTable struct {
	fast        []uint32   // First-level table
	overflow    [][]uint32 // Second-level tables, one per long-code prefix
	fastMask    uint32
	overflowMask uint32
	fastBits    uint32
	minCodeBits uint32 // Shortest code in the table; safe to always request
}

// Build populates h from codes, which must be sorted by ascending symbol.
// When assignCodes is true, the canonical code value for each entry is
// computed from its bit length and written back into codes[i].code.
func (h *huffTable) Build(codes []huffSym, assignCodes bool) {
	if len(codes) == 0 {
		*h = huffTable{fast: h.fast[:0], overflow: h.overflow[:0]}
		return
	}
	if len(codes) == 1 {
		// A single symbol needs zero bits to resolve on its own, but
		// patchSingleCodeTable already ensured callers never pass exactly
		// one real code without a padding entry, so this path is reached
		// only when fed a table directly.
		*h = huffTable{
			fast:     append(h.fast[:0], codes[0].symbol<<tableCountBits),
			overflow: h.overflow[:0],
		}
		return
	}

	minLen, maxLen, counts := tallyCodeLengths(codes)
	offsets := canonicalStartCodes(minLen, maxLen, counts)

	h.fastBits = maxLen
	if h.fastBits > maxFastBits {
		h.fastBits = maxFastBits
	}
	h.minCodeBits = minLen
	fastSize := 1 << h.fastBits
	h.fast = resizeUint32s(h.fast, fastSize)
	h.fastMask = uint32(fastSize - 1)

	h.overflow = h.overflow[:0]
	h.overflowMask = 0
	if h.fastBits < maxLen {
		h.allocateOverflow(fastSize, maxLen, offsets)
	}

	for i := range codes {
		c := &codes[i]
		entry := c.symbol<<tableCountBits | c.bits
		code := reverseLowBits(uint32(offsets[c.bits]), uint(c.bits))
		offsets[c.bits]++
		if assignCodes {
			c.code = code
		}
		h.place(entry, code, c.bits)
	}
}

// tallyCodeLengths computes the shortest and longest code length present
// and a histogram of how many symbols use each length, panicking if any
// code is missing a length or if symbols are out of order.
func tallyCodeLengths(codes []huffSym) (minLen, maxLen uint32, counts [maxCodeBits + 1]uint) {
	minLen, maxLen = math.MaxUint32, 0
	lastSym := -1
	for _, c := range codes {
		if c.bits == 0 || int(c.symbol) < lastSym {
			panic(ErrCorrupt)
		}
		if minLen > c.bits {
			minLen = c.bits
		}
		if maxLen < c.bits {
			maxLen = c.bits
		}
		counts[c.bits]++
		lastSym = int(c.symbol)
	}
	if maxLen > maxCodeBits {
		panic(ErrCorrupt)
	}
	return minLen, maxLen, counts
}

// canonicalStartCodes computes, per RFC 1951 section 3.2.2, the first
// canonical code value assigned to each code length, verifying the Kraft
// equality holds for a complete code.
func canonicalStartCodes(minLen, maxLen uint32, counts [maxCodeBits + 1]uint) (offsets [maxCodeBits + 1]uint) {
	var code uint
	for i := minLen; i <= maxLen; i++ {
		code <<= 1
		offsets[i] = code
		code += counts[i]
	}
	if code != 1<<maxLen {
		panic(ErrCorrupt) // Code is under- or over-subscribed
	}
	return offsets
}

// allocateOverflow reserves one second-level table per distinct fastBits
// prefix shared by codes longer than fastBits, and wires each such prefix's
// first-level entry to point at its table.
func (h *huffTable) allocateOverflow(fastSize int, maxLen uint32, offsets [maxCodeBits + 1]uint) {
	overflowSize := 1 << (maxLen - h.fastBits)
	h.overflowMask = uint32(overflowSize - 1)

	firstLongCode := offsets[h.fastBits+1] >> 1
	h.overflow = growUint32Rows(h.overflow, fastSize-int(firstLongCode))
	for i := range h.overflow {
		prefix := reverseLowBits(uint32(firstLongCode)+uint32(i), uint(h.fastBits))
		h.overflow[i] = resizeUint32s(h.overflow[i], overflowSize)
		h.fast[prefix] = uint32(i<<tableCountBits) | (h.fastBits + 1)
	}
}

// place writes entry into every first-level (or, for long codes,
// second-level) table slot whose low bits equal code, stepping by the
// code's own width since fast/overflow are indexed by more bits than the
// code itself uses.
func (h *huffTable) place(entry, code, bits uint32) {
	if bits <= h.fastBits {
		step := 1 << bits
		for i := int(code); i < len(h.fast); i += step {
			h.fast[i] = entry
		}
		return
	}
	overflowIdx := h.fast[code&h.fastMask] >> tableCountBits
	table := h.overflow[overflowIdx]
	step := 1 << (bits - h.fastBits)
	for i := int(code >> h.fastBits); i < len(table); i += step {
		table[i] = entry
	}
}
