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
	"io"
	"strconv"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/goccy/go-json"

	"github.com/cloudwego/buddykit/buddy"
)

// Unit is the label printed after block sizes.
const Unit = "KB"

const failedCell = "Failed to allocate"

// table is a boxed text table. Column widths fit the widest cell.
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) widths() []int {
	w := make([]int, len(t.headers))
	for i, h := range t.headers {
		w[i] = len(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if len(c) > w[i] {
				w[i] = len(c)
			}
		}
	}
	return w
}

// lineLen returns the length of one rendered line including '\n'.
func lineLen(widths []int) int {
	n := 2
	for _, w := range widths {
		n += w + 3
	}
	return n
}

func appendBorder(b []byte, widths []int) []byte {
	for _, w := range widths {
		b = append(b, '+')
		for i := 0; i < w+2; i++ {
			b = append(b, '-')
		}
	}
	return append(b, '+', '\n')
}

func appendRow(b []byte, widths []int, cells []string) []byte {
	for i, w := range widths {
		b = append(b, '|', ' ')
		b = append(b, cells[i]...)
		for pad := w - len(cells[i]); pad >= 0; pad-- {
			b = append(b, ' ')
		}
	}
	return append(b, '|', '\n')
}

func (t *table) appendTo(b []byte) []byte {
	w := t.widths()
	b = appendBorder(b, w)
	b = appendRow(b, w, t.headers)
	b = appendBorder(b, w)
	for _, r := range t.rows {
		b = appendRow(b, w, r)
	}
	return appendBorder(b, w)
}

func (t *table) size() int {
	return lineLen(t.widths()) * (len(t.rows) + 4)
}

// writeTitled writes title on its own line followed by t.
func writeTitled(w io.Writer, title string, t *table) error {
	buf := mcache.Malloc(0, len(title)+1+t.size())
	buf = append(buf, title...)
	buf = append(buf, '\n')
	buf = t.appendTo(buf)
	_, err := w.Write(buf)
	mcache.Free(buf)
	return err
}

func itoa(n int) string { return strconv.Itoa(n) }

// WriteResults renders one row per process: requested size, address,
// allocated size and waste. Failed allocations are marked as such.
func WriteResults(w io.Writer, results []Result) error {
	t := &table{headers: []string{"Process", "Requested Size", "Allocated Address", "Allocated Size", "Waste"}}
	for _, r := range results {
		if !r.OK() {
			t.rows = append(t.rows, []string{itoa(r.Process), itoa(r.Requested), failedCell, "-", "-"})
			continue
		}
		t.rows = append(t.rows, []string{
			itoa(r.Process), itoa(r.Requested), itoa(r.Block.Addr), itoa(r.Block.Size), itoa(r.Waste()),
		})
	}
	return writeTitled(w, "Allocation Results:", t)
}

// WriteTable renders the allocated blocks ordered by address.
func WriteTable(w io.Writer, s buddy.Snapshot) error {
	t := &table{headers: []string{"Allocated Address", "Block Size (" + Unit + ")"}}
	for _, b := range s.Allocated {
		t.rows = append(t.rows, []string{itoa(b.Addr), itoa(b.Size)})
	}
	return writeTitled(w, "Allocation Table:", t)
}

// WriteMemory lists every free block, largest size first and oldest first
// within a size, then every allocated block by address.
func WriteMemory(w io.Writer, s buddy.Snapshot) error {
	const lineEstimate = 48
	buf := mcache.Malloc(0, lineEstimate*(s.FreeCount()+len(s.Allocated)+2))
	buf = append(buf, "Current Memory State:\n"...)
	free := 0
	for i := len(s.Free) - 1; i >= 0; i-- {
		c := s.Free[i]
		for _, addr := range c.Addrs {
			buf = appendBlockLine(buf, c.Size, "free", addr)
			free += c.Size
		}
	}
	used := 0
	for _, b := range s.Allocated {
		buf = appendBlockLine(buf, b.Size, "allocated", b.Addr)
		used += b.Size
	}
	buf = append(buf, "Total: "...)
	buf = strconv.AppendInt(buf, int64(s.TotalMemory), 10)
	buf = append(buf, " "+Unit+", free: "...)
	buf = strconv.AppendInt(buf, int64(free), 10)
	buf = append(buf, " "+Unit+", in use: "...)
	buf = strconv.AppendInt(buf, int64(used), 10)
	buf = append(buf, " "+Unit+"\n"...)
	_, err := w.Write(buf)
	mcache.Free(buf)
	return err
}

func appendBlockLine(b []byte, size int, state string, addr int) []byte {
	b = append(b, "1 block of "...)
	b = strconv.AppendInt(b, int64(size), 10)
	b = append(b, " "+Unit+" ("...)
	b = append(b, state...)
	b = append(b, " at address "...)
	b = strconv.AppendInt(b, int64(addr), 10)
	return append(b, ")\n"...)
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
