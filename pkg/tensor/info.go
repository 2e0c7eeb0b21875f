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
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// tensorSeparators separates tensors in dimension, type and layout strings.
const tensorSeparators = ",."

// Info describes a single tensor.
type Info struct {
	// Name is the optional name of the tensor.
	Name string

	// Type is the element type.
	Type Type

	// Dimension holds the first Rank dimensions, innermost first.
	Dimension [RankLimit]uint32

	// Rank is the number of meaningful entries in Dimension.
	Rank int
}

// Infos describes a set of tensors. It is a plain value, copying it
// yields an independent snapshot. The zero value is an empty set.
type Infos struct {
	// NumTensors is the number of configured tensors.
	NumTensors int

	// Info holds the per-tensor metadata, only the first NumTensors are valid.
	Info [SizeLimit]Info
}

// DimensionString returns the colon separated dimension of the tensor.
func (i Info) DimensionString() string {
	dims := make([]string, 0, i.Rank)
	for d := 0; d < i.Rank; d++ {
		dims = append(dims, strconv.FormatUint(uint64(i.Dimension[d]), 10))
	}

	return strings.Join(dims, ":")
}

// ElementCount returns the number of elements of the tensor, 0 if the rank is unset.
func (i Info) ElementCount() uint64 {
	if i.Rank == 0 {
		return 0
	}

	count := uint64(1)
	for d := 0; d < i.Rank; d++ {
		count *= uint64(i.Dimension[d])
	}

	return count
}

// SameShape reports whether both tensors have the same type and dimension.
// Trailing dimensions of 1 are not significant, so 3:4 equals 3:4:1:1.
func (i Info) SameShape(o Info) bool {
	if i.Type != o.Type {
		return false
	}

	for d := 0; d < RankLimit; d++ {
		if i.dim(d) != o.dim(d) {
			return false
		}
	}

	return true
}

func (i Info) dim(d int) uint32 {
	if d >= i.Rank {
		return 1
	}

	return i.Dimension[d]
}

// Equal reports whether both sets describe the same tensors. Names are ignored.
func (s *Infos) Equal(o *Infos) bool {
	if s.NumTensors != o.NumTensors {
		return false
	}

	for i := 0; i < s.NumTensors; i++ {
		if !s.Info[i].SameShape(o.Info[i]) {
			return false
		}
	}

	return true
}

// ParseDimensions parses a dimension string such as "3:224:224,1:10" into s
// and returns the number of tensors found. On error s is left untouched.
func (s *Infos) ParseDimensions(value string) (int, error) {
	parsed := *s
	tokens := splitTensors(value, tensorSeparators, "dimensions")

	for i, token := range tokens {
		dims := strings.Split(strings.TrimSpace(token), ":")
		if len(dims) > RankLimit {
			return 0, fmt.Errorf("tensor %d has rank %d, max rank is %d", i, len(dims), RankLimit)
		}

		info := &parsed.Info[i]
		info.Dimension = [RankLimit]uint32{}
		for d, dim := range dims {
			v, err := strconv.ParseUint(strings.TrimSpace(dim), 10, 32)
			if err != nil {
				return 0, fmt.Errorf("invalid dimension %q of tensor %d: %w", dim, i, err)
			}

			info.Dimension[d] = uint32(v)
		}
		info.Rank = len(dims)
	}

	*s = parsed
	return len(tokens), nil
}

// ParseTypes parses a comma separated element type list into s and returns
// the number of tensors found. On error s is left untouched.
func (s *Infos) ParseTypes(value string) (int, error) {
	parsed := *s
	tokens := splitTensors(value, tensorSeparators, "types")

	for i, token := range tokens {
		t, err := ParseType(token)
		if err != nil {
			return 0, fmt.Errorf("invalid type of tensor %d: %w", i, err)
		}

		parsed.Info[i].Type = t
	}

	*s = parsed
	return len(tokens), nil
}

// ParseNames parses a comma separated tensor name list into s and returns
// the number of tensors found.
func (s *Infos) ParseNames(value string) int {
	tokens := splitTensors(value, ",", "names")
	for i, token := range tokens {
		s.Info[i].Name = strings.TrimSpace(token)
	}

	return len(tokens)
}

// DimensionsString returns the canonical dimension string of the set.
func (s *Infos) DimensionsString() string {
	return s.join(func(i Info) string { return i.DimensionString() })
}

// TypesString returns the canonical type string of the set.
func (s *Infos) TypesString() string {
	return s.join(func(i Info) string { return i.Type.String() })
}

// NamesString returns the canonical name string of the set.
func (s *Infos) NamesString() string {
	return s.join(func(i Info) string { return i.Name })
}

func (s *Infos) join(field func(Info) string) string {
	values := make([]string, 0, s.NumTensors)
	for i := 0; i < s.NumTensors && i < SizeLimit; i++ {
		values = append(values, field(s.Info[i]))
	}

	return strings.Join(values, ",")
}

// splitTensors splits a per-tensor list, truncating it to SizeLimit entries.
func splitTensors(value, separators, what string) []string {
	if value == "" {
		return nil
	}

	var (
		tokens []string
		start  int
	)
	for i, r := range value {
		if strings.ContainsRune(separators, r) {
			tokens = append(tokens, value[start:i])
			start = i + 1
		}
	}
	tokens = append(tokens, value[start:])

	if len(tokens) > SizeLimit {
		logrus.Warnf("too many tensor %s (%d), max is %d", what, len(tokens), SizeLimit)
		tokens = tokens[:SizeLimit]
	}

	return tokens
}

// Compare renders a side by side comparison of two tensor sets and reports
// whether every line matched.
func Compare(left, right *Infos) (string, bool) {
	var (
		b     strings.Builder
		equal = true
	)

	describe := func(s *Infos, i int) string {
		if i >= s.NumTensors {
			return "None"
		}

		return fmt.Sprintf("%s [%s]", s.Info[i].Type, s.Info[i].DimensionString())
	}

	for i := 0; i < SizeLimit; i++ {
		if i >= left.NumTensors && i >= right.NumTensors {
			break
		}

		l, r := describe(left, i), describe(right, i)
		mark := ""
		if l != r {
			mark = "FAILED"
			equal = false
		}

		fmt.Fprintf(&b, "%2d : %s | %s %s\n", i, l, r, mark)
	}

	return b.String(), equal
}
