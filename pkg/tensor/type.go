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
	"fmt"
	"strings"
)

const (
	// RankLimit is the maximum rank of a single tensor.
	RankLimit = 4

	// SizeLimit is the maximum number of tensors in a tensor set.
	SizeLimit = 16
)

// Type is the element type of a tensor.
type Type int

const (
	// TypeUnknown is the element type of a tensor not configured yet.
	TypeUnknown Type = iota
	TypeInt32
	TypeUint32
	TypeInt16
	TypeUint16
	TypeInt8
	TypeUint8
	TypeFloat64
	TypeFloat32
	TypeInt64
	TypeUint64
	TypeFloat16

	typeEnd
)

var typeNames = [...]string{
	TypeUnknown: "",
	TypeInt32:   "int32",
	TypeUint32:  "uint32",
	TypeInt16:   "int16",
	TypeUint16:  "uint16",
	TypeInt8:    "int8",
	TypeUint8:   "uint8",
	TypeFloat64: "float64",
	TypeFloat32: "float32",
	TypeInt64:   "int64",
	TypeUint64:  "uint64",
	TypeFloat16: "float16",
}

var typeSizes = [...]int{
	TypeUnknown: 0,
	TypeInt32:   4,
	TypeUint32:  4,
	TypeInt16:   2,
	TypeUint16:  2,
	TypeInt8:    1,
	TypeUint8:   1,
	TypeFloat64: 8,
	TypeFloat32: 4,
	TypeInt64:   8,
	TypeUint64:  8,
	TypeFloat16: 2,
}

// String returns the canonical name of the type, empty for TypeUnknown.
func (t Type) String() string {
	if t < 0 || t >= typeEnd {
		return ""
	}

	return typeNames[t]
}

// Size returns the size in bytes of a single element, 0 for TypeUnknown.
func (t Type) Size() int {
	if t < 0 || t >= typeEnd {
		return 0
	}

	return typeSizes[t]
}

// ParseType parses the case-insensitive type name.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n != "" && n == name {
			return Type(t), nil
		}
	}

	return TypeUnknown, fmt.Errorf("unknown tensor type: %q", s)
}
