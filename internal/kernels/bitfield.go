package kernels

import (
	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/rng"
)

const (
	bitfieldWords  = 16384
	bitfieldSpan   = 262140
	bitfieldMaxOps = 1 << 24
	bitfieldFill   = 0x5555555555555555
)

// BitfieldOps applies BitOpArraySize set, clear and complement runs to a
// bitmap of BitFieldArraySize 64-bit words. One iteration is credited with
// the total number of bits touched.
type BitfieldOps struct{}

func NewBitfield() *BitfieldOps { return &BitfieldOps{} }

func (*BitfieldOps) Name() string { return Bitfield }

func (*BitfieldOps) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamBitOpArraySize,
		Start: 3,
		Max:   bitfieldMaxOps,
		Grow:  harness.Double(),
	}
}

func (*BitfieldOps) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	b := &bitfieldInstance{ar: newArena(env.Alloc)}
	nops := orDefault(sizes.BitOpArraySize, 3)
	// Runs never reach past bit bitfieldSpan.
	words := max(orDefault(sizes.BitFieldArraySize, bitfieldWords), (bitfieldSpan+63)/64)

	bitmap, err := allocate[uint64](b.ar, words)
	if err != nil {
		return nil, err
	}
	ops, err := allocate[uint32](b.ar, 2*nops)
	if err != nil {
		_ = b.ar.release()
		return nil, err
	}
	b.bitmap, b.ops = bitmap, ops
	b.nbits = loadBitOps(ops, env.Rand)
	return b, nil
}

type bitfieldInstance struct {
	ar     *arena
	bitmap []uint64
	// ops holds (offset, length) pairs.
	ops   []uint32
	nbits float64
}

// loadBitOps fills ops with (offset, run length) pairs and returns the sum of
// the run lengths.
func loadBitOps(ops []uint32, r *rng.Sequence) float64 {
	r.Reseed(13)
	var total float64
	for i := 0; i+1 < len(ops); i += 2 {
		off := r.NextPositiveBounded(bitfieldSpan)
		run := r.NextPositiveBounded(bitfieldSpan - off)
		ops[i] = uint32(off)
		ops[i+1] = uint32(run)
		total += float64(run)
	}
	return total
}

func (b *bitfieldInstance) Prepare() {
	for i := range b.bitmap {
		b.bitmap[i] = bitfieldFill
	}
}

func (b *bitfieldInstance) Run() error {
	for i := 0; i+1 < len(b.ops); i += 2 {
		off, run := b.ops[i], b.ops[i+1]
		switch (i / 2) % 3 {
		case 0:
			setBitRun(b.bitmap, off, run, true)
		case 1:
			setBitRun(b.bitmap, off, run, false)
		case 2:
			flipBitRun(b.bitmap, off, run)
		}
	}
	return nil
}

func (b *bitfieldInstance) Units() float64 { return b.nbits }

func (b *bitfieldInstance) Teardown() { _ = b.ar.release() }

func setBitRun(bitmap []uint64, addr, n uint32, val bool) {
	for ; n > 0; n-- {
		mask := uint64(1) << (addr % 64)
		if val {
			bitmap[addr>>6] |= mask
		} else {
			bitmap[addr>>6] &^= mask
		}
		addr++
	}
}

func flipBitRun(bitmap []uint64, addr, n uint32) {
	for ; n > 0; n-- {
		bitmap[addr>>6] ^= uint64(1) << (addr % 64)
		addr++
	}
}
