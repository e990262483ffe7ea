// Package memory hands out buffers at a configurable alignment and keeps the
// bookkeeping needed to release them again.
//
// Every kernel allocates its arrays here. The table mapping an adjusted
// address back to its raw block is shared by all workers and guarded by a
// single mutex.
package memory

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	// ErrOutOfMemory is returned when an allocation would exceed the limit.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrNotFound is returned when freeing a block the allocator never handed out.
	ErrNotFound = errors.New("block not found in allocation table")
	// ErrAlignment is returned for an alignment that is neither zero nor a
	// power of two of at least eight bytes.
	ErrAlignment = errors.New("alignment must be 0 or a power of two >= 8")
)

// Element lists the element types that may live in an allocated buffer.
// Buffers are backed by word arrays the garbage collector does not scan for
// pointers, so only pointer-free scalars are allowed.
type Element interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~int | ~uint | ~float32 | ~float64
}

type block struct {
	raw  []uint64
	size int64
}

// Allocator tracks aligned allocations.
type Allocator struct {
	align uintptr
	limit int64

	mu     sync.Mutex
	blocks map[uintptr]block
	inUse  int64
	peak   int64
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithAlignment sets the byte alignment of returned buffers. The address of
// each buffer is a multiple of n but not of 2n, so that every run exercises
// exactly the requested alignment. Zero keeps the natural alignment.
func WithAlignment(n int) Option {
	return func(a *Allocator) {
		a.align = uintptr(n)
	}
}

// WithLimit caps the number of live bytes. Zero means unlimited.
func WithLimit(bytes int64) Option {
	return func(a *Allocator) {
		if bytes > 0 {
			a.limit = bytes
		}
	}
}

// New returns an allocator configured by opts.
func New(opts ...Option) (*Allocator, error) {
	a := &Allocator{blocks: make(map[uintptr]block)}
	for _, opt := range opts {
		opt(a)
	}
	if a.align != 0 && (a.align < 8 || a.align&(a.align-1) != 0) {
		return nil, fmt.Errorf("%w: got %d", ErrAlignment, a.align)
	}
	return a, nil
}

// Alignment returns the configured alignment in bytes.
func (a *Allocator) Alignment() int {
	return int(a.align)
}

// InUse returns the number of live bytes.
func (a *Allocator) InUse() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Peak returns the high-water mark of live bytes.
func (a *Allocator) Peak() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}

// Blocks returns the number of live allocations.
func (a *Allocator) Blocks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

func (a *Allocator) alloc(nbytes uintptr) (unsafe.Pointer, error) {
	size := int64(nbytes)

	a.mu.Lock()
	if a.limit > 0 && a.inUse+size > a.limit {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrOutOfMemory, size, a.inUse, a.limit)
	}
	a.inUse += size
	a.mu.Unlock()

	words := (nbytes + 2*a.align + 7) / 8
	raw := make([]uint64, words)
	base := unsafe.Pointer(unsafe.SliceData(raw))

	var off uintptr
	if a.align != 0 {
		addr := uintptr(base)
		adj := (addr + a.align - 1) &^ (a.align - 1)
		if adj%(2*a.align) == 0 {
			adj += a.align
		}
		off = adj - addr
	}
	ptr := unsafe.Add(base, off)

	a.mu.Lock()
	a.blocks[uintptr(ptr)] = block{raw: raw, size: size}
	a.peak = max(a.peak, a.inUse)
	a.mu.Unlock()

	return ptr, nil
}

func (a *Allocator) release(addr uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.blocks[addr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrNotFound, addr)
	}
	delete(a.blocks, addr)
	a.inUse -= b.size
	return nil
}

// Make allocates a buffer of n elements of T.
func Make[T Element](a *Allocator, n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	var zero T
	elem := unsafe.Sizeof(zero)
	if uintptr(n) > (^uintptr(0)>>1)/elem {
		return nil, fmt.Errorf("%w: %d elements of %d bytes", ErrOutOfMemory, n, elem)
	}
	p, err := a.alloc(uintptr(n) * elem)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(p), n), nil
}

// Free releases a buffer obtained from Make. Freeing a nil or empty slice is
// a no-op.
func Free[T Element](a *Allocator, s []T) error {
	if cap(s) == 0 {
		return nil
	}
	return a.release(uintptr(unsafe.Pointer(unsafe.SliceData(s))))
}
