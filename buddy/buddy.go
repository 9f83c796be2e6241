/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package buddy implements a buddy system allocator over an abstract arena.
//
// The arena is a range of 2^N units. Requests are rounded up to a power of two,
// carved out of the smallest sufficient free block by repeated halving, and
// merged back with their buddy on free for as long as the buddy is also free.
// Addresses are plain offsets into the arena; no memory is reserved.
//
// An Allocator is not safe for concurrent use.
package buddy

import (
	"fmt"
	"math/bits"
)

// Block is an aligned range [Addr, Addr+Size) of the arena.
type Block struct {
	Addr int `json:"addr"`
	Size int `json:"size"`
}

// End returns the first address past the block.
func (b Block) End() int { return b.Addr + b.Size }

func (b Block) String() string {
	return fmt.Sprintf("[%d, %d)", b.Addr, b.End())
}

// Allocator is a buddy system allocator.
type Allocator struct {
	// totalMemory is the arena size, a power of two.
	totalMemory int
	// maxOrder is log2(totalMemory).
	maxOrder int

	// freeLists holds the free block addresses for each order.
	// freeLists[o] is for blocks of 1<<o units, freeLists[maxOrder] for the whole arena.
	freeLists []freeList

	// allocated maps the start address of every allocated block to its size.
	allocated map[int]int
}

// New creates an allocator managing an arena of totalMemory units.
// totalMemory must be a positive power of two.
func New(totalMemory int) (*Allocator, error) {
	if !isPowerOfTwo(totalMemory) {
		return nil, fmt.Errorf("%w: total memory must be a positive power of two, got %d",
			ErrInvalidSize, totalMemory)
	}
	maxOrder := bits.TrailingZeros(uint(totalMemory))
	a := &Allocator{
		totalMemory: totalMemory,
		maxOrder:    maxOrder,
		freeLists:   make([]freeList, maxOrder+1),
		allocated:   make(map[int]int),
	}
	a.freeLists[maxOrder].push(0)
	return a, nil
}

// TotalMemory returns the arena size.
func (a *Allocator) TotalMemory() int { return a.totalMemory }

// Allocate reserves a block of at least size units.
// The returned block size is RoundUp(size); the difference is internal waste.
//
// Among free blocks of the same size the oldest one is used. A larger free block
// is split in halves until it matches: the lower half is kept and the upper half
// goes to the free list of the halved size.
func (a *Allocator) Allocate(size int) (Block, error) {
	if size <= 0 {
		return Block{}, fmt.Errorf("%w: requested %d, must be > 0", ErrInvalidSize, size)
	}
	if size > a.totalMemory {
		return Block{}, fmt.Errorf("%w: requested %d exceeds arena of %d",
			ErrOutOfMemory, size, a.totalMemory)
	}
	order := orderForSize(size)

	// Find the smallest non-empty order that fits
	foundOrder := -1
	for o := order; o <= a.maxOrder; o++ {
		if !a.freeLists[o].empty() {
			foundOrder = o
			break
		}
	}
	if foundOrder == -1 {
		return Block{}, fmt.Errorf("%w: no free block of %d or larger", ErrOutOfMemory, 1<<order)
	}

	addr := a.freeLists[foundOrder].pop()
	for foundOrder > order {
		foundOrder--
		a.freeLists[foundOrder].push(addr + 1<<foundOrder)
	}

	blockSize := 1 << order
	a.allocated[addr] = blockSize
	return Block{Addr: addr, Size: blockSize}, nil
}

// Deallocate releases the block allocated at addr with the given size,
// which must be the size returned by Allocate.
//
// The block is merged with its buddy while the buddy is free, up to the whole arena.
// On error nothing is changed.
func (a *Allocator) Deallocate(addr, size int) error {
	if !isPowerOfTwo(size) {
		return fmt.Errorf("%w: block size must be a positive power of two, got %d", ErrInvalidSize, size)
	}
	got, ok := a.allocated[addr]
	if !ok {
		return fmt.Errorf("%w: no block allocated at %d", ErrInvalidAddress, addr)
	}
	if got != size {
		return fmt.Errorf("%w: block at %d has size %d, not %d", ErrInvalidAddress, addr, got, size)
	}
	delete(a.allocated, addr)

	order := orderForSize(size)
	for order < a.maxOrder {
		// Blocks of 1<<order are aligned to 1<<order, so flipping that bit
		// moves between the two halves of the parent block.
		buddy := addr ^ (1 << order)
		if !a.freeLists[order].remove(buddy) {
			break
		}
		if buddy < addr {
			addr = buddy
		}
		order++
	}
	a.freeLists[order].push(addr)
	return nil
}

// Available returns the total size of all free blocks.
func (a *Allocator) Available() int {
	total := 0
	for order, freeList := range a.freeLists {
		total += len(freeList) << order
	}
	return total
}

// InUse returns the total size of all allocated blocks.
func (a *Allocator) InUse() int {
	total := 0
	for _, size := range a.allocated {
		total += size
	}
	return total
}

// Reset frees every block and returns the allocator to its initial state.
func (a *Allocator) Reset() {
	for i := range a.freeLists {
		a.freeLists[i] = a.freeLists[i][:0]
	}
	a.freeLists[a.maxOrder].push(0)
	for addr := range a.allocated {
		delete(a.allocated, addr)
	}
}

// RoundUp returns the smallest power of two >= size, or 1 if size < 1.
// It returns 0 if the result does not fit in an int.
func RoundUp(size int) int {
	if size <= 1 {
		return 1
	}
	shift := bits.Len(uint(size - 1))
	if shift >= bits.UintSize-1 {
		return 0
	}
	return 1 << shift
}

// orderForSize returns log2(RoundUp(size)) for size >= 1.
func orderForSize(size int) int {
	return bits.Len(uint(size - 1))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
