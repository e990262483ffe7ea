package kernels

import (
	"bytes"

	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/rng"
)

const (
	strSortArraySize = 8111
	strSortMaxArrays = 10000
	// strSortSlack is the headroom after each array. A swap can grow a string
	// by up to 75 bytes before the partner shrinks it back.
	strSortSlack = 100
	strMaxLen    = 76
)

// StringSort heapsorts NumArrays copies of a buffer of length-prefixed byte
// strings. Strings are moved physically, so every exchange of two strings of
// different lengths shifts the bytes between them.
type StringSort struct{}

func NewStringSort() *StringSort { return &StringSort{} }

func (*StringSort) Name() string { return StrSort }

func (*StringSort) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamNumArrays,
		Start: 1,
		Max:   strSortMaxArrays,
		Grow:  harness.Double(),
	}
}

func (*StringSort) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	s := &strSortInstance{
		ar:        newArena(env.Alloc),
		rand:      env.Rand,
		arraySize: orDefault(sizes.ArraySize, strSortArraySize),
		numArrays: orDefault(sizes.NumArrays, 1),
	}

	stride := s.arraySize + strSortSlack
	buf, err := allocate[byte](s.ar, stride*s.numArrays)
	if err != nil {
		return nil, err
	}
	s.buf = buf

	// The string count depends only on the canonical sequence, so one load
	// sizes the offset tables.
	s.nstrings = s.load(buf[:s.arraySize])
	offs, err := allocate[uint32](s.ar, s.nstrings*s.numArrays)
	if err != nil {
		_ = s.ar.release()
		return nil, err
	}
	s.offs = offs
	return s, nil
}

type strSortInstance struct {
	ar        *arena
	rand      *rng.Sequence
	buf       []byte
	offs      []uint32
	arraySize int
	numArrays int
	nstrings  int
}

// load fills dst with length-prefixed random strings until it is full and
// returns how many strings it wrote.
func (s *strSortInstance) load(dst []byte) int {
	s.rand.Reseed(13)
	n, off := 0, 0
	for full := false; !full; n++ {
		l := 1 + int(s.rand.NextPositiveBounded(strMaxLen))
		if l+off+1 >= len(dst) {
			l = len(dst) - off - 1
			full = true
		}
		dst[off] = byte(l)
		off++
		for i := 0; i < l; i++ {
			dst[off] = byte(s.rand.NextPositiveBounded(0xFE))
			off++
		}
	}
	return n
}

func (s *strSortInstance) array(k int) strArray {
	stride := s.arraySize + strSortSlack
	return strArray{
		buf:  s.buf[k*stride : (k+1)*stride],
		offs: s.offs[k*s.nstrings : (k+1)*s.nstrings],
	}
}

func (s *strSortInstance) Prepare() {
	first := s.buf[:s.arraySize]
	s.load(first)

	a0 := s.array(0)
	off := uint32(0)
	for i := range a0.offs {
		a0.offs[i] = off
		off += uint32(first[off]) + 1
	}
	for k := 1; k < s.numArrays; k++ {
		a := s.array(k)
		copy(a.buf, first)
		copy(a.offs, a0.offs)
	}
}

func (s *strSortInstance) Run() error {
	var tmp [256]byte
	for k := 0; k < s.numArrays; k++ {
		s.array(k).heapSort(&tmp)
	}
	return nil
}

func (s *strSortInstance) Units() float64 { return float64(s.numArrays) }

func (s *strSortInstance) Teardown() { _ = s.ar.release() }

// strArray is one array of packed strings: buf holds length byte then
// contents for each string, offs[i] is where string i starts.
type strArray struct {
	buf  []byte
	offs []uint32
}

func (a strArray) str(i int) []byte {
	o := a.offs[i]
	return a.buf[o+1 : o+1+uint32(a.buf[o])]
}

func (a strArray) less(i, j int) bool {
	return bytes.Compare(a.str(i), a.str(j)) < 0
}

// resize changes the length of string i to l and shifts every later string
// to close or open the gap.
func (a strArray) resize(i int, l byte) {
	o := a.offs[i]
	last := len(a.offs) - 1
	if i == last {
		a.buf[o] = l
		return
	}
	end := a.offs[last] + uint32(a.buf[a.offs[last]]) + 1
	next := a.offs[i+1]
	copy(a.buf[o+1+uint32(l):], a.buf[next:end])

	delta := int64(l) - int64(a.buf[o])
	for j := i + 1; j <= last; j++ {
		a.offs[j] = uint32(int64(a.offs[j]) + delta)
	}
	a.buf[o] = l
}

// swap exchanges strings i and j, i < j.
func (a strArray) swap(i, j int, tmp *[256]byte) {
	oi := a.offs[i]
	n := int(a.buf[oi]) + 1
	copy(tmp[:n], a.buf[oi:int(oi)+n])

	a.resize(i, a.buf[a.offs[j]])
	oi, oj := a.offs[i], a.offs[j]
	copy(a.buf[oi:], a.buf[oj:oj+uint32(a.buf[oj])+1])

	a.resize(j, tmp[0])
	copy(a.buf[a.offs[j]:], tmp[:n])
}

func (a strArray) heapSort(tmp *[256]byte) {
	n := len(a.offs)
	for i := n/2 - 1; i >= 0; i-- {
		a.siftDown(i, n, tmp)
	}
	for end := n - 1; end > 0; end-- {
		a.swap(0, end, tmp)
		a.siftDown(0, end, tmp)
	}
}

func (a strArray) siftDown(root, n int, tmp *[256]byte) {
	for {
		child := 2*root + 1
		if child >= n {
			return
		}
		if child+1 < n && a.less(child, child+1) {
			child++
		}
		if !a.less(root, child) {
			return
		}
		a.swap(root, child, tmp)
		root = child
	}
}

// sorted reports whether the strings are in non-decreasing order.
func (a strArray) sorted() bool {
	for i := 1; i < len(a.offs); i++ {
		if a.less(i, i-1) {
			return false
		}
	}
	return true
}
