// Package alloc models the PSRAM-preferring allocation installed into
// portable_mdx: large buffers are taken from external memory when it is
// available and from the general heap otherwise.
package alloc

import (
	"errors"
	"fmt"
	"sync"
)

// ErrExhausted is returned when an allocator cannot satisfy a request.
var ErrExhausted = errors.New("allocator exhausted")

// Region identifies where a block was placed.
type Region string

const (
	RegionExternal Region = "external"
	RegionGeneral  Region = "general"
)

// Allocator hands out byte blocks of an exact size.
type Allocator interface {
	Alloc(size int) ([]byte, error)
}

// Block is an allocation together with the region that served it.
type Block struct {
	Data   []byte
	Region Region
}

// Placement tries External first and falls back to General. External may be
// nil, which models a build without external memory.
type Placement struct {
	External Allocator
	General  Allocator
}

// Alloc returns a block of exactly size bytes.
func (p Placement) Alloc(size int) (Block, error) {
	if size < 0 {
		return Block{}, fmt.Errorf("alloc %d bytes: negative size", size)
	}
	if p.External != nil {
		if data, err := p.External.Alloc(size); err == nil && data != nil {
			return Block{Data: data, Region: RegionExternal}, nil
		}
	}
	if p.General == nil {
		return Block{}, fmt.Errorf("alloc %d bytes: %w", size, ErrExhausted)
	}
	data, err := p.General.Alloc(size)
	if err != nil {
		return Block{}, fmt.Errorf("alloc %d bytes: %w", size, err)
	}
	return Block{Data: data, Region: RegionGeneral}, nil
}

// Heap is an unbounded allocator backed by the Go heap.
type Heap struct{}

// Alloc implements Allocator.
func (Heap) Alloc(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// Limited is a capacity-bounded allocator. It stands in for a fixed-size
// memory such as PSRAM.
type Limited struct {
	mu       sync.Mutex
	capacity int
	used     int
}

// NewLimited creates an allocator holding capacity bytes.
func NewLimited(capacity int) *Limited {
	return &Limited{capacity: capacity}
}

// Alloc implements Allocator.
func (l *Limited) Alloc(size int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if size > l.capacity-l.used {
		return nil, ErrExhausted
	}
	l.used += size
	return make([]byte, size), nil
}

// Free returns size bytes to the allocator.
func (l *Limited) Free(size int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.used -= size
	if l.used < 0 {
		l.used = 0
	}
}

// Used reports the bytes currently allocated.
func (l *Limited) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
