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
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/buddykit/buddy"
)

func TestSessionAllocatePending(t *testing.T) {
	s := newTestSession(t, 16)
	for _, size := range []int{3, 4, 2, 100, 1} {
		require.NoError(t, s.AddProcess(size))
	}
	assert.Equal(t, []int{3, 4, 2, 100, 1}, s.Pending())

	results := s.AllocatePending()
	require.Len(t, results, 5)
	assert.Empty(t, s.Pending())

	want := []struct {
		block buddy.Block
		waste int
	}{
		{buddy.Block{Addr: 0, Size: 4}, 1},
		{buddy.Block{Addr: 4, Size: 4}, 0},
		{buddy.Block{Addr: 8, Size: 2}, 0},
		{},
		{buddy.Block{Addr: 10, Size: 1}, 0},
	}
	for i, r := range results {
		assert.Equal(t, i+1, r.Process)
		if i == 3 {
			assert.False(t, r.OK())
			assert.ErrorIs(t, r.Err, buddy.ErrOutOfMemory)
			assert.Zero(t, r.Waste())
			continue
		}
		require.True(t, r.OK(), "process %d: %v", r.Process, r.Err)
		assert.Equal(t, want[i].block, r.Block)
		assert.Equal(t, want[i].waste, r.Waste())
	}
	require.NoError(t, s.Allocator().Validate())
}

func TestSessionAddProcessInvalid(t *testing.T) {
	s := newTestSession(t, 16)
	assert.ErrorIs(t, s.AddProcess(0), buddy.ErrInvalidSize)
	assert.ErrorIs(t, s.AddProcess(-3), buddy.ErrInvalidSize)
	assert.Empty(t, s.Pending())
}

func TestSessionPendingIsCopy(t *testing.T) {
	s := newTestSession(t, 16)
	require.NoError(t, s.AddProcess(4))
	p := s.Pending()
	p[0] = 99
	assert.Equal(t, []int{4}, s.Pending())
}

func TestSessionFree(t *testing.T) {
	s := newTestSession(t, 16)
	r := s.Allocate(5)
	require.True(t, r.OK())

	assert.ErrorIs(t, s.Free(r.Block.Addr, 4), buddy.ErrInvalidAddress)
	assert.ErrorIs(t, s.Free(r.Block.Addr, 5), buddy.ErrInvalidSize)
	require.NoError(t, s.Free(r.Block.Addr, r.Block.Size))
	assert.ErrorIs(t, s.Free(r.Block.Addr, r.Block.Size), buddy.ErrInvalidAddress)
	assert.Equal(t, 16, s.Allocator().Available())
}

func TestSessionReset(t *testing.T) {
	s := newTestSession(t, 16)
	require.NoError(t, s.AddProcess(2))
	s.Allocate(8)

	s.Reset()
	assert.Empty(t, s.Pending())
	assert.Equal(t, map[int][]int{16: {0}}, s.Allocator().FreeBlocks())
}

func TestSessionLogs(t *testing.T) {
	var buf bytes.Buffer
	a, err := buddy.New(8)
	require.NoError(t, err)
	s := NewSession(a, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	s.Allocate(8)
	s.Allocate(1)
	out := buf.String()
	assert.Contains(t, out, "msg=allocated")
	assert.Contains(t, out, "msg=\"allocation failed\"")
	assert.Contains(t, out, "total_memory=8")
}

func TestResultMarshalJSON(t *testing.T) {
	ok := Result{Process: 1, Requested: 3, Block: buddy.Block{Addr: 0, Size: 4}}
	b, err := ok.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"process":1,"requested":3,"addr":0,"size":4,"waste":1}`, string(b))

	failed := Result{Process: 2, Requested: 100, Err: errors.New("no room")}
	b, err = failed.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"process":2,"requested":100,"waste":0,"error":"no room"}`, string(b))
}

// helpers

func newTestSession(t *testing.T, total int) *Session {
	t.Helper()
	a, err := buddy.New(total)
	require.NoError(t, err)
	return NewSession(a, nil)
}
