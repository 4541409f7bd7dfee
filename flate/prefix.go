package flate

const maxCodeBits = 15 // Longest canonical Huffman code RFC 1951 permits

const (
	maxCLenAlphabet = 19  // Code-length alphabet used to transmit the other two
	maxLitAlphabet  = 286 // Literal/length alphabet, excluding the degenerate-code pad
	maxDistAlphabet = 30  // Distance alphabet, excluding the degenerate-code pad
)

var (
	lengthTable    [maxLitAlphabet - 257]baseExtra // RFC 1951 section 3.2.5
	distanceTable  [maxDistAlphabet]baseExtra      // RFC 1951 section 3.2.5
	fixedLitTable  huffTable                       // RFC 1951 section 3.2.6
	fixedDistTable huffTable                       // RFC 1951 section 3.2.6
)

// baseExtra maps a length or distance symbol to the smallest value it
// represents plus the count of extra bits following it in the stream that
// get added to that base.
type baseExtra struct {
	base  uint32
	extra uint32
}

// huffSym associates a symbol with its canonical Huffman code: a bit length
// and, once assigned, the code value itself.
type huffSym struct {
	symbol uint32
	code   uint32
	bits   uint32
}

// clenPermutation is the order in which code-length-alphabet lengths are
// transmitted in a dynamic block header, per RFC 1951 section 3.2.7.
var clenPermutation = [maxCLenAlphabet]uint{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

func buildFixedHuffmanTables() {
	// RFC 1951 section 3.2.5.
	for i, base := 0, 3; i < len(lengthTable)-1; i++ {
		nb := uint(i/4 - 1)
		if i < 4 {
			nb = 0
		}
		lengthTable[i] = baseExtra{base: uint32(base), extra: uint32(nb)}
		base += 1 << nb
	}
	lengthTable[len(lengthTable)-1] = baseExtra{base: 258, extra: 0}

	// RFC 1951 section 3.2.5.
	for i, base := 0, 1; i < len(distanceTable); i++ {
		nb := uint(i/2 - 1)
		if i < 2 {
			nb = 0
		}
		distanceTable[i] = baseExtra{base: uint32(base), extra: uint32(nb)}
		base += 1 << nb
	}

	// RFC 1951 section 3.2.6: literal/length code lengths are fixed by
	// symbol range, never transmitted.
	var litSyms [288]huffSym
	for i := 0; i < 144; i++ {
		litSyms[i] = huffSym{symbol: uint32(i), bits: 8}
	}
	for i := 144; i < 256; i++ {
		litSyms[i] = huffSym{symbol: uint32(i), bits: 9}
	}
	for i := 256; i < 280; i++ {
		litSyms[i] = huffSym{symbol: uint32(i), bits: 7}
	}
	for i := 280; i < 288; i++ {
		litSyms[i] = huffSym{symbol: uint32(i), bits: 8}
	}
	fixedLitTable.Build(litSyms[:], true)

	// RFC 1951 section 3.2.6: all 32 distance slots share bit length 5.
	var distSyms [32]huffSym
	for i := 0; i < 32; i++ {
		distSyms[i] = huffSym{symbol: uint32(i), bits: 5}
	}
	fixedDistTable.Build(distSyms[:], true)
}
