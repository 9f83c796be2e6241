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

package buddy

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/util/xxhash3"
)

// FreeClass is the list of free blocks of one size, oldest first.
type FreeClass struct {
	Size  int   `json:"size"`
	Addrs []int `json:"addrs"`
}

// Snapshot is a point-in-time copy of the allocator tables.
type Snapshot struct {
	TotalMemory int `json:"total_memory"`
	// Free is ordered by ascending size. Empty size classes are omitted.
	Free []FreeClass `json:"free"`
	// Allocated is ordered by ascending address.
	Allocated []Block `json:"allocated"`
}

// FreeBlocks returns a copy of the free table: block size to addresses, oldest first.
// Sizes without free blocks are omitted.
func (a *Allocator) FreeBlocks() map[int][]int {
	m := make(map[int][]int)
	for order, l := range a.freeLists {
		if !l.empty() {
			m[1<<order] = l.clone()
		}
	}
	return m
}

// AllocatedBlocks returns a copy of the allocated table: block address to block size.
func (a *Allocator) AllocatedBlocks() map[int]int {
	m := make(map[int]int, len(a.allocated))
	for addr, size := range a.allocated {
		m[addr] = size
	}
	return m
}

// Snapshot returns a copy of both tables.
func (a *Allocator) Snapshot() Snapshot {
	s := Snapshot{TotalMemory: a.totalMemory}
	for order, l := range a.freeLists {
		if !l.empty() {
			s.Free = append(s.Free, FreeClass{Size: 1 << order, Addrs: l.clone()})
		}
	}
	s.Allocated = make([]Block, 0, len(a.allocated))
	for addr, size := range a.allocated {
		s.Allocated = append(s.Allocated, Block{Addr: addr, Size: size})
	}
	sort.Slice(s.Allocated, func(i, j int) bool {
		return s.Allocated[i].Addr < s.Allocated[j].Addr
	})
	return s
}

// FreeCount returns the number of free blocks.
func (s Snapshot) FreeCount() int {
	n := 0
	for _, c := range s.Free {
		n += len(c.Addrs)
	}
	return n
}

// AppendBinary appends a uvarint encoding of s to b.
// Addresses within a size class are encoded in ascending order,
// so snapshots with the same free sets encode identically regardless of FIFO order.
func (s Snapshot) AppendBinary(b []byte) []byte {
	b = binary.AppendUvarint(b, uint64(s.TotalMemory))
	b = binary.AppendUvarint(b, uint64(len(s.Free)))
	var addrs []int
	for _, c := range s.Free {
		addrs = append(addrs[:0], c.Addrs...)
		sort.Ints(addrs)
		b = binary.AppendUvarint(b, uint64(c.Size))
		b = binary.AppendUvarint(b, uint64(len(addrs)))
		for _, addr := range addrs {
			b = binary.AppendUvarint(b, uint64(addr))
		}
	}
	b = binary.AppendUvarint(b, uint64(len(s.Allocated)))
	for _, blk := range s.Allocated {
		b = binary.AppendUvarint(b, uint64(blk.Addr))
		b = binary.AppendUvarint(b, uint64(blk.Size))
	}
	return b
}

// Digest returns a fingerprint of the snapshot.
// Equal tables give equal digests.
func (s Snapshot) Digest() uint64 {
	// each field is at most binary.MaxVarintLen64 bytes
	n := 3 + 2*len(s.Free) + s.FreeCount() + 2*len(s.Allocated)
	buf := s.AppendBinary(dirtmake.Bytes(0, n*binary.MaxVarintLen64))
	return xxhash3.Hash(buf)
}

// Validate checks that every block is aligned to its size and that free and
// allocated blocks together cover the arena exactly once.
// It returns an error wrapping ErrCorrupted on the first violation found.
func (a *Allocator) Validate() error {
	type entry struct {
		Block
		free bool
	}
	blocks := make([]entry, 0, len(a.allocated)+8)
	for order, l := range a.freeLists {
		for _, addr := range l {
			blocks = append(blocks, entry{Block{Addr: addr, Size: 1 << order}, true})
		}
	}
	for addr, size := range a.allocated {
		blocks = append(blocks, entry{Block{Addr: addr, Size: size}, false})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Addr != blocks[j].Addr {
			return blocks[i].Addr < blocks[j].Addr
		}
		return blocks[i].Size < blocks[j].Size
	})

	next := 0
	for _, e := range blocks {
		state := "allocated"
		if e.free {
			state = "free"
		}
		if !isPowerOfTwo(e.Size) || e.Addr%e.Size != 0 {
			return fmt.Errorf("%w: %s block %v is not aligned to its size", ErrCorrupted, state, e.Block)
		}
		if e.Addr < next {
			return fmt.Errorf("%w: %s block %v overlaps a previous block ending at %d",
				ErrCorrupted, state, e.Block, next)
		}
		if e.Addr > next {
			return fmt.Errorf("%w: gap [%d, %d) is neither free nor allocated", ErrCorrupted, next, e.Addr)
		}
		next = e.End()
	}
	if next != a.totalMemory {
		return fmt.Errorf("%w: gap [%d, %d) is neither free nor allocated", ErrCorrupted, next, a.totalMemory)
	}
	return nil
}
