package kernels

import "math"

type fpClass uint8

const (
	fpZero fpClass = iota
	fpNormal
	fpInfinity
	fpNaN
)

const mantWords = 4

// emFloat is a software floating-point number. The 64-bit mantissa is kept as
// four 16-bit words, most significant first, with the binary point left of
// the top bit; a normal number has that bit set. Results are truncated.
type emFloat struct {
	class fpClass
	sign  bool
	exp   int16
	mant  [mantWords]uint16
}

type mantissa = [mantWords]uint16

func emFromInt32(v int32) emFloat {
	if v == 0 {
		return emFloat{class: fpZero}
	}
	u := uint32(v)
	if v < 0 {
		u = uint32(-int64(v))
	}
	f := emFloat{class: fpNormal, sign: v < 0}
	f.mant[0] = uint16(u >> 16)
	f.mant[1] = uint16(u)
	return f.normalized(32)
}

// float64 converts f, rounding the mantissa to 53 bits.
func (f emFloat) float64() float64 {
	var v float64
	switch f.class {
	case fpZero:
		v = 0
	case fpInfinity:
		v = math.Inf(1)
	case fpNaN:
		return math.NaN()
	default:
		m := uint64(f.mant[0])<<48 | uint64(f.mant[1])<<32 | uint64(f.mant[2])<<16 | uint64(f.mant[3])
		v = math.Ldexp(float64(m), int(f.exp)-64)
	}
	if f.sign {
		v = -v
	}
	return v
}

// normalized shifts the mantissa up until its top bit is set, adjusting e,
// and folds exponent overflow into infinity and underflow into zero.
func (f emFloat) normalized(e int32) emFloat {
	if mantIsZero(&f.mant) {
		return emFloat{class: fpZero, sign: f.sign}
	}
	for f.mant[0]&0x8000 == 0 {
		mantShiftLeft(&f.mant, 0)
		e--
	}
	switch {
	case e > math.MaxInt16:
		return emFloat{class: fpInfinity, sign: f.sign}
	case e < math.MinInt16:
		return emFloat{class: fpZero, sign: f.sign}
	}
	f.class = fpNormal
	f.exp = int16(e)
	return f
}

func emNaN() emFloat { return emFloat{class: fpNaN} }

func emAdd(x, y emFloat) emFloat { return emAddSub(x, y, false) }

func emSub(x, y emFloat) emFloat { return emAddSub(x, y, true) }

func emAddSub(x, y emFloat, subtract bool) emFloat {
	if subtract {
		y.sign = !y.sign
	}
	switch {
	case x.class == fpNaN || y.class == fpNaN:
		return emNaN()
	case x.class == fpInfinity && y.class == fpInfinity:
		if x.sign != y.sign {
			return emNaN()
		}
		return x
	case x.class == fpInfinity:
		return x
	case y.class == fpInfinity:
		return y
	case x.class == fpZero && y.class == fpZero:
		return emFloat{class: fpZero, sign: x.sign && y.sign}
	case x.class == fpZero:
		return y
	case y.class == fpZero:
		return x
	}

	if x.exp < y.exp {
		x, y = y, x
	}
	shift := int32(x.exp) - int32(y.exp)
	if shift >= 16*mantWords {
		return x
	}
	for ; shift >= 16; shift -= 16 {
		copy(y.mant[1:], y.mant[:mantWords-1])
		y.mant[0] = 0
	}
	for ; shift > 0; shift-- {
		mantShiftRight(&y.mant, 0)
	}

	e := int32(x.exp)
	res := emFloat{class: fpNormal}
	switch {
	case x.sign == y.sign:
		res.sign = x.sign
		res.mant = x.mant
		if mantAdd(&res.mant, &y.mant) != 0 {
			mantShiftRight(&res.mant, 1)
			e++
		}
	case mantCmp(&x.mant, &y.mant) >= 0:
		res.sign = x.sign
		res.mant = x.mant
		mantSub(&res.mant, &y.mant)
	default:
		res.sign = y.sign
		res.mant = y.mant
		mantSub(&res.mant, &x.mant)
	}
	if mantIsZero(&res.mant) {
		return emFloat{class: fpZero}
	}
	return res.normalized(e)
}

func emMul(x, y emFloat) emFloat {
	sign := x.sign != y.sign
	switch {
	case x.class == fpNaN || y.class == fpNaN:
		return emNaN()
	case x.class == fpInfinity && y.class == fpZero, x.class == fpZero && y.class == fpInfinity:
		return emNaN()
	case x.class == fpInfinity || y.class == fpInfinity:
		return emFloat{class: fpInfinity, sign: sign}
	case x.class == fpZero || y.class == fpZero:
		return emFloat{class: fpZero, sign: sign}
	}

	// Schoolbook product, one 16-bit word per slot.
	var p [2 * mantWords]uint32
	for i := mantWords - 1; i >= 0; i-- {
		var carry uint32
		for j := mantWords - 1; j >= 0; j-- {
			t := uint32(x.mant[i])*uint32(y.mant[j]) + p[i+j+1] + carry
			p[i+j+1] = t & 0xFFFF
			carry = t >> 16
		}
		p[i] = carry
	}

	res := emFloat{class: fpNormal, sign: sign}
	for i := range res.mant {
		res.mant[i] = uint16(p[i])
	}
	e := int32(x.exp) + int32(y.exp)
	// Both factors lie in [0.5, 1), so at most one shift is needed and the
	// bit shifted in comes from the discarded half.
	if res.mant[0]&0x8000 == 0 {
		mantShiftLeft(&res.mant, uint16(p[mantWords]>>15))
		e--
	}
	return res.normalized(e)
}

func emDiv(x, y emFloat) emFloat {
	sign := x.sign != y.sign
	switch {
	case x.class == fpNaN || y.class == fpNaN:
		return emNaN()
	case x.class == fpInfinity && y.class == fpInfinity, x.class == fpZero && y.class == fpZero:
		return emNaN()
	case x.class == fpInfinity || y.class == fpZero:
		return emFloat{class: fpInfinity, sign: sign}
	case x.class == fpZero || y.class == fpInfinity:
		return emFloat{class: fpZero, sign: sign}
	}

	// Restoring division. The first quotient bit is the integer part of a
	// ratio in (0.5, 2), hence the +1 on the exponent.
	rem := x.mant
	var q mantissa
	var top uint16
	for i := 0; i < 16*mantWords; i++ {
		var bit uint16
		if top != 0 || mantCmp(&rem, &y.mant) >= 0 {
			mantSub(&rem, &y.mant)
			bit = 1
		}
		mantShiftLeft(&q, bit)
		top = mantShiftLeft(&rem, 0)
	}
	res := emFloat{class: fpNormal, sign: sign, mant: q}
	return res.normalized(int32(x.exp) - int32(y.exp) + 1)
}

func mantIsZero(m *mantissa) bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}

func mantCmp(a, b *mantissa) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// mantAdd sets a += b and returns the carry out of the top word.
func mantAdd(a, b *mantissa) uint16 {
	var c uint32
	for i := mantWords - 1; i >= 0; i-- {
		s := uint32(a[i]) + uint32(b[i]) + c
		a[i] = uint16(s)
		c = s >> 16
	}
	return uint16(c)
}

// mantSub sets a -= b and returns the borrow out of the top word.
func mantSub(a, b *mantissa) uint16 {
	var borrow uint32
	for i := mantWords - 1; i >= 0; i-- {
		d := uint32(a[i]) - uint32(b[i]) - borrow
		a[i] = uint16(d)
		borrow = (d >> 16) & 1
	}
	return uint16(borrow)
}

func mantShiftLeft(m *mantissa, in uint16) uint16 {
	for i := mantWords - 1; i >= 0; i-- {
		out := m[i] >> 15
		m[i] = m[i]<<1 | in
		in = out
	}
	return in
}

func mantShiftRight(m *mantissa, in uint16) uint16 {
	for i := 0; i < mantWords; i++ {
		out := m[i] & 1
		m[i] = m[i]>>1 | in<<15
		in = out
	}
	return in
}
