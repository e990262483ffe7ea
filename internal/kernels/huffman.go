package kernels

import (
	"errors"
	"fmt"

	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/rng"
)

const (
	huffArraySize  = 5000
	huffMaxLoops   = 500000
	huffMaxLineLen = 500
	huffNodes      = 512
	// huffExcluded marks a node that never takes part in tree building.
	huffExcluded = 32000
	huffRoot     = -2
)

// ErrHuffmanMismatch is returned when decompressed text differs from the
// original.
var ErrHuffmanMismatch = errors.New("huffman round trip mismatch")

// HuffmanCoding builds a Huffman tree over a generated text block, then
// compresses and decompresses it, Loops times per iteration.
type HuffmanCoding struct{}

func NewHuffman() *HuffmanCoding { return &HuffmanCoding{} }

func (*HuffmanCoding) Name() string { return Huffman }

func (*HuffmanCoding) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamLoops,
		Start: 100,
		Max:   huffMaxLoops,
		Grow:  harness.Step(10),
	}
}

func (*HuffmanCoding) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	size := max(orDefault(sizes.ArraySize, huffArraySize), 2)
	h := &huffInstance{ar: newArena(env.Alloc), loops: orDefault(sizes.Loops, 1)}

	// The worst code length is well under 9 bits per byte for text.
	sizesNeeded := []int{size, size*9/8 + 1, size}
	bufs := make([][]byte, len(sizesNeeded))
	for i, n := range sizesNeeded {
		b, err := allocate[byte](h.ar, n)
		if err != nil {
			_ = h.ar.release()
			return nil, err
		}
		bufs[i] = b
	}
	h.plain, h.comp, h.decomp = bufs[0], bufs[1], bufs[2]

	env.Rand.Reseed(13)
	createTextBlock(h.plain[:size-1], huffMaxLineLen, env.Rand)
	h.plain[size-1] = 0
	return h, nil
}

type huffNode struct {
	freq   float32
	parent int32
	left   int32
	right  int32
	c      byte
}

type huffInstance struct {
	ar     *arena
	plain  []byte
	comp   []byte
	decomp []byte
	tree   [huffNodes]huffNode
	loops  int
}

func (h *huffInstance) Prepare() {}

func (h *huffInstance) Run() error {
	for l := 0; l < h.loops; l++ {
		root := h.buildTree()
		bits, err := h.compress()
		if err != nil {
			return err
		}
		h.decompress(root, bits)
	}
	return nil
}

func (h *huffInstance) Units() float64 { return float64(h.loops) }

func (h *huffInstance) Teardown() { _ = h.ar.release() }

// buildTree counts byte frequencies and merges the two rarest live nodes
// until one remains. It returns the index of the root.
func (h *huffInstance) buildTree() int {
	t := &h.tree
	for i := 0; i < 256; i++ {
		t[i] = huffNode{c: byte(i)}
	}
	for _, c := range h.plain {
		t[c].freq++
	}
	n := float32(len(h.plain))
	for i := 0; i < 256; i++ {
		if t[i].freq != 0 {
			t[i].freq /= n
		}
	}
	for i := 256; i < huffNodes; i++ {
		t[i] = huffNode{}
	}
	for i := range t {
		if t[i].freq == 0 {
			t[i].parent = huffExcluded
		} else {
			t[i].parent, t[i].left, t[i].right = -1, -1, -1
		}
	}

	root := 255
	for {
		low1, low2 := float32(2), float32(2)
		idx1, idx2 := -1, -1
		for i := 0; i <= root; i++ {
			if t[i].parent < 0 && t[i].freq < low1 {
				low1, idx1 = t[i].freq, i
			}
		}
		if idx1 == -1 {
			break
		}
		for i := 0; i <= root; i++ {
			if t[i].parent < 0 && i != idx1 && t[i].freq < low2 {
				low2, idx2 = t[i].freq, i
			}
		}
		if idx2 == -1 {
			break
		}

		root++
		t[idx1].parent = int32(root)
		t[idx2].parent = int32(root)
		t[root] = huffNode{
			freq:   low1 + low2,
			left:   int32(idx1),
			right:  int32(idx2),
			parent: huffRoot,
		}
	}
	return root
}

// compress writes the code of every plaintext byte into comp and returns the
// number of bits written.
func (h *huffInstance) compress() (int, error) {
	t := &h.tree
	var code [huffNodes]byte
	bit := 0
	for _, c := range h.plain {
		n := 0
		for node := int32(c); t[node].parent != huffRoot; node = t[node].parent {
			if t[t[node].parent].left == node {
				code[n] = 0
			} else {
				code[n] = 1
			}
			n++
		}
		if (bit+n+7)/8 > len(h.comp) {
			return 0, fmt.Errorf("compressed text exceeds %d bytes", len(h.comp))
		}
		for n > 0 {
			n--
			setCompBit(h.comp, bit, code[n])
			bit++
		}
	}
	return bit, nil
}

// decompress walks the tree for each code in comp.
func (h *huffInstance) decompress(root, nbits int) {
	t := &h.tree
	bit, out := 0, 0
	for bit < nbits && out < len(h.decomp) {
		i := int32(root)
		for t[i].left != -1 {
			if compBit(h.comp, bit) == 0 {
				i = t[i].left
			} else {
				i = t[i].right
			}
			bit++
		}
		h.decomp[out] = t[i].c
		out++
	}
}

// verify compares the decompressed text with the plaintext.
func (h *huffInstance) verify() error {
	for i := range h.plain {
		if h.plain[i] != h.decomp[i] {
			return fmt.Errorf("%w at offset %d", ErrHuffmanMismatch, i)
		}
	}
	return nil
}

func setCompBit(comp []byte, bit int, v byte) {
	mask := byte(1) << (bit % 8)
	if v != 0 {
		comp[bit>>3] |= mask
	} else {
		comp[bit>>3] &^= mask
	}
}

func compBit(comp []byte, bit int) byte {
	return (comp[bit>>3] >> (bit % 8)) & 1
}

// createTextBlock fills tb with lines of random words, each line between six
// and maxLineLen bytes long including its newline.
func createTextBlock(tb []byte, maxLineLen int32, r *rng.Sequence) {
	for pos := 0; pos < len(tb); {
		lineLen := int(r.NextPositiveBounded(maxLineLen-6)) + 6
		lineLen = min(lineLen, len(tb)-pos)
		if lineLen > 1 {
			createTextLine(tb[pos:pos+lineLen-1], r)
		}
		tb[pos+lineLen-1] = '\n'
		pos += lineLen
	}
}

// createTextLine fills dt with space-separated catalogue words, truncating
// the last one.
func createTextLine(dt []byte, r *rng.Sequence) {
	for pos := 0; pos < len(dt); {
		word := wordCatalog[r.NextPositiveBounded(int32(len(wordCatalog)))]
		n := copy(dt[pos:], word)
		pos += n
		if pos < len(dt) {
			dt[pos] = ' '
			pos++
		}
	}
}
