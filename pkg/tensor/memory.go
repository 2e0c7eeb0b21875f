/*
 *     Copyright 2025 The CNAI Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tensor

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// Memory is a tensor buffer exchanged with a backend on invoke.
type Memory struct {
	Data []byte
	Type Type
}

// Size returns the length of the buffer in bytes.
func (m Memory) Size() int {
	return len(m.Data)
}

// ErrTooLarge is returned when a tensor does not fit in an addressable buffer.
var ErrTooLarge = errors.New("tensor too large")

// NewMemory allocates a zeroed buffer large enough for the tensor.
func NewMemory(info Info) (Memory, error) {
	size := uint64(info.Type.Size())
	if info.Rank == 0 {
		size = 0
	}

	for d := 0; d < info.Rank; d++ {
		var hi uint64
		hi, size = bits.Mul64(size, uint64(info.Dimension[d]))
		if hi != 0 || size > math.MaxInt {
			return Memory{}, fmt.Errorf("%w: %s of %s", ErrTooLarge, info.DimensionString(), info.Type)
		}
	}

	return Memory{
		Data: make([]byte, size),
		Type: info.Type,
	}, nil
}
