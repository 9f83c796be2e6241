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

package sim

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResults(t *testing.T) {
	s := newTestSession(t, 16)
	for _, size := range []int{3, 100} {
		require.NoError(t, s.AddProcess(size))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, s.AllocatePending()))

	border := "+---------+----------------+--------------------+----------------+-------+"
	want := strings.Join([]string{
		"Allocation Results:",
		border,
		"| Process | Requested Size | Allocated Address  | Allocated Size | Waste |",
		border,
		"| 1       | 3              | 0                  | 4              | 1     |",
		"| 2       | 100            | Failed to allocate | -              | -     |",
		border,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTable(t *testing.T) {
	s := newTestSession(t, 16)
	for _, size := range []int{3, 4, 2} {
		require.True(t, s.Allocate(size).OK())
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, s.Allocator().Snapshot()))

	row := func(a, b string) string { return fmt.Sprintf("| %-17s | %-15s |", a, b) }
	border := "+" + strings.Repeat("-", 19) + "+" + strings.Repeat("-", 17) + "+"
	want := strings.Join([]string{
		"Allocation Table:",
		border,
		row("Allocated Address", "Block Size (KB)"),
		border,
		row("0", "4"),
		row("4", "4"),
		row("8", "2"),
		border,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteMemory(t *testing.T) {
	s := newTestSession(t, 16)
	for _, size := range []int{3, 4, 2} {
		require.True(t, s.Allocate(size).OK())
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMemory(&buf, s.Allocator().Snapshot()))
	assert.Equal(t, `Current Memory State:
1 block of 4 KB (free at address 12)
1 block of 2 KB (free at address 10)
1 block of 4 KB (allocated at address 0)
1 block of 4 KB (allocated at address 4)
1 block of 2 KB (allocated at address 8)
Total: 16 KB, free: 6 KB, in use: 10 KB
`, buf.String())
}

func TestWriteMemoryEmptyArena(t *testing.T) {
	s := newTestSession(t, 8)
	require.True(t, s.Allocate(8).OK())

	var buf bytes.Buffer
	require.NoError(t, WriteMemory(&buf, s.Allocator().Snapshot()))
	assert.Equal(t, "Current Memory State:\n1 block of 8 KB (allocated at address 0)\nTotal: 8 KB, free: 0 KB, in use: 8 KB\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	s := newTestSession(t, 16)
	r := s.Allocate(3)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, s.Allocator().Snapshot()))
	assert.JSONEq(t, `{
		"total_memory": 16,
		"free": [{"size": 4, "addrs": [4]}, {"size": 8, "addrs": [8]}],
		"allocated": [{"addr": 0, "size": 4}]
	}`, buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, []Result{r}))
	assert.JSONEq(t, `[{"process":1,"requested":3,"addr":0,"size":4,"waste":1}]`, buf.String())
}

func BenchmarkWriteResults(b *testing.B) {
	results := make([]Result, 64)
	for i := range results {
		results[i] = Result{Process: i + 1, Requested: i*7 + 1}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = WriteResults(io.Discard, results)
	}
}
