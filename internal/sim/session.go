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

// Package sim drives a buddy allocator the way the interactive simulator does:
// processes are queued, allocated as a batch, freed by address, and the
// resulting tables are rendered for display.
package sim

import (
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/cloudwego/buddykit/buddy"
	"github.com/cloudwego/buddykit/internal/logger"
)

// Result is the outcome of allocating memory for one process.
type Result struct {
	// Process is the 1-based position of the request in its batch.
	Process   int
	Requested int
	// Block is zero when Err is set.
	Block buddy.Block
	Err   error
}

// OK reports whether the allocation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Waste is the part of the block the process did not ask for.
func (r Result) Waste() int {
	if r.Err != nil {
		return 0
	}
	return r.Block.Size - r.Requested
}

type resultJSON struct {
	Process   int    `json:"process"`
	Requested int    `json:"requested"`
	Addr      *int   `json:"addr,omitempty"`
	Size      int    `json:"size,omitempty"`
	Waste     int    `json:"waste"`
	Error     string `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	v := resultJSON{Process: r.Process, Requested: r.Requested}
	if r.Err != nil {
		v.Error = r.Err.Error()
	} else {
		addr := r.Block.Addr
		v.Addr = &addr
		v.Size = r.Block.Size
		v.Waste = r.Waste()
	}
	return json.Marshal(v)
}

// Session owns one allocator and the queue of processes waiting for memory.
// It is not safe for concurrent use.
type Session struct {
	alloc   *buddy.Allocator
	pending []int
	log     *slog.Logger
}

// NewSession wraps a. A nil log discards all records.
func NewSession(a *buddy.Allocator, log *slog.Logger) *Session {
	if log == nil {
		log = logger.Discard()
	}
	return &Session{alloc: a, log: log.With("total_memory", a.TotalMemory())}
}

// Allocator returns the underlying allocator.
func (s *Session) Allocator() *buddy.Allocator { return s.alloc }

// AddProcess queues a process of the given size for the next AllocatePending.
func (s *Session) AddProcess(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: process size %d, must be > 0", buddy.ErrInvalidSize, size)
	}
	s.pending = append(s.pending, size)
	s.log.Debug("process queued", "size", size, "pending", len(s.pending))
	return nil
}

// Pending returns the queued process sizes in order.
func (s *Session) Pending() []int {
	return append([]int(nil), s.pending...)
}

// AllocatePending allocates every queued process in order and empties the queue.
// A failed allocation does not stop the batch.
func (s *Session) AllocatePending() []Result {
	results := make([]Result, 0, len(s.pending))
	for i, size := range s.pending {
		results = append(results, s.allocate(i+1, size))
	}
	s.pending = s.pending[:0]
	return results
}

// Allocate allocates a single process outside the queue.
func (s *Session) Allocate(size int) Result {
	return s.allocate(1, size)
}

func (s *Session) allocate(process, size int) Result {
	r := Result{Process: process, Requested: size}
	r.Block, r.Err = s.alloc.Allocate(size)
	if r.Err != nil {
		s.log.Warn("allocation failed", "process", process, "requested", size, "err", r.Err)
		return r
	}
	s.log.Debug("allocated", "process", process, "requested", size,
		"addr", r.Block.Addr, "size", r.Block.Size, "waste", r.Waste())
	return r
}

// Free releases the block at addr of the given size.
func (s *Session) Free(addr, size int) error {
	if err := s.alloc.Deallocate(addr, size); err != nil {
		s.log.Warn("deallocation failed", "addr", addr, "size", size, "err", err)
		return err
	}
	s.log.Debug("freed", "addr", addr, "size", size, "available", s.alloc.Available())
	return nil
}

// Reset frees every block and drops the queue.
func (s *Session) Reset() {
	s.alloc.Reset()
	s.pending = s.pending[:0]
	s.log.Debug("reset")
}
