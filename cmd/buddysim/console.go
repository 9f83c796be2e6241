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

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudwego/buddykit/internal/sim"
)

// console executes simulator commands against a session and renders the
// results as text or JSON.
type console struct {
	s       *sim.Session
	out     io.Writer
	jsonOut bool
}

func (c *console) printf(format string, args ...interface{}) {
	if !c.jsonOut {
		fmt.Fprintf(c.out, format, args...)
	}
}

// exec runs one script line. Blank lines and lines starting with '#' are ignored.
func (c *console) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	name := strings.ToLower(fields[0])
	args, err := parseInts(fields[1:])
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	switch name {
	case "add":
		if len(args) == 0 {
			return errors.New("usage: add <size>...")
		}
		return c.add(args...)
	case "alloc", "allocate":
		return c.allocate(args...)
	case "free", "dealloc":
		if len(args) != 2 {
			return errors.New("usage: free <addr> <size>")
		}
		return c.free(args[0], args[1])
	}

	if len(args) != 0 {
		return fmt.Errorf("%s takes no arguments", name)
	}
	switch name {
	case "show", "memory":
		return c.show()
	case "table":
		return c.table()
	case "pending":
		return c.pending()
	case "check":
		return c.check()
	case "reset":
		c.s.Reset()
		c.printf("Memory reset.\n")
		return nil
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func parseInts(ss []string) ([]int, error) {
	nn := make([]int, 0, len(ss))
	for _, s := range ss {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s)
		}
		nn = append(nn, n)
	}
	return nn, nil
}

func (c *console) add(sizes ...int) error {
	for _, size := range sizes {
		if err := c.s.AddProcess(size); err != nil {
			return err
		}
		c.printf("Process of size %d added.\n", size)
	}
	return nil
}

// allocate allocates the given sizes, or the queued processes if none are given.
func (c *console) allocate(sizes ...int) error {
	var results []sim.Result
	if len(sizes) == 0 {
		results = c.s.AllocatePending()
	} else {
		results = make([]sim.Result, 0, len(sizes))
		for i, size := range sizes {
			r := c.s.Allocate(size)
			r.Process = i + 1
			results = append(results, r)
		}
	}
	if c.jsonOut {
		return sim.WriteJSON(c.out, results)
	}
	return sim.WriteResults(c.out, results)
}

func (c *console) free(addr, size int) error {
	if err := c.s.Free(addr, size); err != nil {
		return err
	}
	c.printf("Block at address %d (size %d) deallocated.\n", addr, size)
	return nil
}

func (c *console) show() error {
	snap := c.s.Allocator().Snapshot()
	if c.jsonOut {
		return sim.WriteJSON(c.out, snap)
	}
	return sim.WriteMemory(c.out, snap)
}

func (c *console) table() error {
	snap := c.s.Allocator().Snapshot()
	if c.jsonOut {
		return sim.WriteJSON(c.out, snap.Allocated)
	}
	return sim.WriteTable(c.out, snap)
}

func (c *console) pending() error {
	p := c.s.Pending()
	if c.jsonOut {
		return sim.WriteJSON(c.out, p)
	}
	if len(p) == 0 {
		c.printf("No pending processes.\n")
		return nil
	}
	for i, size := range p {
		c.printf("%d. size %d\n", i+1, size)
	}
	return nil
}

func (c *console) check() error {
	a := c.s.Allocator()
	if err := a.Validate(); err != nil {
		return err
	}
	digest := a.Snapshot().Digest()
	if c.jsonOut {
		return sim.WriteJSON(c.out, map[string]interface{}{
			"valid":     true,
			"available": a.Available(),
			"in_use":    a.InUse(),
			"digest":    fmt.Sprintf("%016x", digest),
		})
	}
	c.printf("OK: free %d, in use %d, digest %016x\n", a.Available(), a.InUse(), digest)
	return nil
}
