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

// freeList holds the start addresses of the free blocks of one size class
// in insertion order. pop always returns the oldest entry.
type freeList []int

func (l freeList) empty() bool { return len(l) == 0 }

func (l *freeList) push(addr int) {
	*l = append(*l, addr)
}

// pop removes and returns the first-inserted address.
// The caller must check empty() first.
func (l *freeList) pop() int {
	s := *l
	addr := s[0]
	n := copy(s, s[1:])
	*l = s[:n]
	return addr
}

// remove deletes addr while keeping the order of the remaining entries.
// It reports whether addr was present.
func (l *freeList) remove(addr int) bool {
	s := *l
	for i, a := range s {
		if a == addr {
			n := copy(s[i:], s[i+1:])
			*l = s[:i+n]
			return true
		}
	}
	return false
}

func (l freeList) clone() []int {
	if len(l) == 0 {
		return nil
	}
	c := make([]int, len(l))
	copy(c, l)
	return c
}
