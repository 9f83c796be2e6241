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

import "errors"

var (
	// ErrInvalidSize indicates a non-positive size, or a block/arena size that is not a power of two.
	ErrInvalidSize = errors.New("buddy: invalid size")

	// ErrInvalidAddress indicates a deallocation of a block that is not allocated at the given size.
	// It covers unknown addresses, double frees and size mismatches.
	ErrInvalidAddress = errors.New("buddy: invalid address")

	// ErrOutOfMemory indicates that no free block is large enough for the request.
	ErrOutOfMemory = errors.New("buddy: out of memory")

	// ErrCorrupted is reported by Validate when the tables no longer tile the arena.
	ErrCorrupted = errors.New("buddy: corrupted block tables")
)
