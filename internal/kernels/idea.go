package kernels

import (
	"encoding/binary"

	"github.com/utkarsh5026/nbench/internal/harness"
)

const (
	ideaArraySize = 4000
	ideaMaxLoops  = 500000
	ideaRounds    = 8
	ideaKeyLen    = 6*ideaRounds + 4
	ideaBlockSize = 8
)

type ideaKey [ideaKeyLen]uint16

// IDEACipher encrypts and decrypts a 4000-byte buffer Loops times per
// iteration with the eight-round IDEA block cipher.
type IDEACipher struct{}

func NewIDEA() *IDEACipher { return &IDEACipher{} }

func (*IDEACipher) Name() string { return IDEA }

func (*IDEACipher) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamLoops,
		Start: 1,
		Max:   ideaMaxLoops,
		Grow:  harness.Double(),
	}
}

func (*IDEACipher) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	size := orDefault(sizes.ArraySize, ideaArraySize)
	size -= size % ideaBlockSize
	if size == 0 {
		size = ideaBlockSize
	}
	c := &ideaInstance{ar: newArena(env.Alloc), loops: orDefault(sizes.Loops, 1)}

	r := env.Rand
	r.Reseed(3)
	var userKey [8]uint16
	for i := range userKey {
		userKey[i] = uint16(r.NextPositiveBounded(60000))
	}
	c.enc = expandKey(userKey)
	c.dec = invertKey(&c.enc)

	bufs := make([][]byte, 3)
	for i := range bufs {
		b, err := allocate[byte](c.ar, size)
		if err != nil {
			_ = c.ar.release()
			return nil, err
		}
		bufs[i] = b
	}
	c.plain1, c.crypt1, c.plain2 = bufs[0], bufs[1], bufs[2]
	for i := range c.plain1 {
		c.plain1[i] = byte(r.NextPositiveBounded(255))
	}
	return c, nil
}

type ideaInstance struct {
	ar     *arena
	enc    ideaKey
	dec    ideaKey
	plain1 []byte
	crypt1 []byte
	plain2 []byte
	loops  int
}

func (c *ideaInstance) Prepare() {}

func (c *ideaInstance) Run() error {
	for l := 0; l < c.loops; l++ {
		for j := 0; j < len(c.plain1); j += ideaBlockSize {
			ideaCipher(c.plain1[j:j+ideaBlockSize], c.crypt1[j:j+ideaBlockSize], &c.enc)
		}
		for j := 0; j < len(c.crypt1); j += ideaBlockSize {
			ideaCipher(c.crypt1[j:j+ideaBlockSize], c.plain2[j:j+ideaBlockSize], &c.dec)
		}
	}
	return nil
}

func (c *ideaInstance) Units() float64 { return float64(c.loops) }

func (c *ideaInstance) Teardown() { _ = c.ar.release() }

// ideaMul multiplies modulo 65537, reading 0 as 65536.
func ideaMul(a, b uint16) uint16 {
	if a == 0 {
		return 1 - b
	}
	if b == 0 {
		return 1 - a
	}
	p := uint32(a) * uint32(b)
	lo, hi := uint16(p), uint16(p>>16)
	r := lo - hi
	if lo < hi {
		r++
	}
	return r
}

// ideaInv returns the multiplicative inverse of x modulo 65537.
func ideaInv(x uint16) uint16 {
	if x <= 1 {
		return x
	}
	t1 := uint16(0x10001 / uint32(x))
	y := uint16(0x10001 % uint32(x))
	if y == 1 {
		return 1 - t1
	}
	t0 := uint16(1)
	for {
		q := x / y
		x %= y
		t0 += q * t1
		if x == 1 {
			return t0
		}
		q = y / x
		y %= x
		t1 += q * t0
		if y == 1 {
			return 1 - t1
		}
	}
}

// expandKey derives the 52 encryption subkeys from the 128-bit user key by
// repeated 25-bit rotations.
func expandKey(user [8]uint16) ideaKey {
	var z ideaKey
	copy(z[:], user[:])
	base, i := 0, 0
	for j := 8; j < ideaKeyLen; j++ {
		i++
		z[base+i+7] = z[base+(i&7)]<<9 | z[base+((i+1)&7)]>>7
		base += i & 8
		i &= 7
	}
	return z
}

// invertKey derives the decryption subkeys from the encryption subkeys.
func invertKey(z *ideaKey) ideaKey {
	var dk ideaKey
	p := ideaKeyLen
	zi := 0
	next := func() uint16 {
		v := z[zi]
		zi++
		return v
	}
	put := func(v uint16) {
		p--
		dk[p] = v
	}

	t1 := ideaInv(next())
	t2 := -next()
	t3 := -next()
	put(ideaInv(next()))
	put(t3)
	put(t2)
	put(t1)

	for r := 1; r < ideaRounds; r++ {
		t1 = next()
		put(next())
		put(t1)

		t1 = ideaInv(next())
		t2 = -next()
		t3 = -next()
		put(ideaInv(next()))
		put(t2)
		put(t3)
		put(t1)
	}

	t1 = next()
	put(next())
	put(t1)

	t1 = ideaInv(next())
	t2 = -next()
	t3 = -next()
	put(ideaInv(next()))
	put(t3)
	put(t2)
	put(t1)
	return dk
}

// ideaCipher transforms one 8-byte block. Words are little-endian.
func ideaCipher(in, out []byte, z *ideaKey) {
	x1 := binary.LittleEndian.Uint16(in[0:])
	x2 := binary.LittleEndian.Uint16(in[2:])
	x3 := binary.LittleEndian.Uint16(in[4:])
	x4 := binary.LittleEndian.Uint16(in[6:])

	k := 0
	for r := 0; r < ideaRounds; r++ {
		x1 = ideaMul(x1, z[k])
		x2 += z[k+1]
		x3 += z[k+2]
		x4 = ideaMul(x4, z[k+3])

		t2 := ideaMul(x1^x3, z[k+4])
		t1 := ideaMul(t2+(x2^x4), z[k+5])
		t2 += t1

		x1 ^= t1
		x4 ^= t2
		t2 ^= x2
		x2 = x3 ^ t1
		x3 = t2
		k += 6
	}

	binary.LittleEndian.PutUint16(out[0:], ideaMul(x1, z[k]))
	binary.LittleEndian.PutUint16(out[2:], x3+z[k+1])
	binary.LittleEndian.PutUint16(out[4:], x2+z[k+2])
	binary.LittleEndian.PutUint16(out[6:], ideaMul(x4, z[k+3]))
}
