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
	"strings"

	"github.com/sirupsen/logrus"
)

// Layout is the memory layout of a tensor.
type Layout int

const (
	// LayoutAny accepts any layout, it is the default.
	LayoutAny Layout = iota

	// LayoutNCHW is channel first.
	LayoutNCHW

	// LayoutNHWC is channel last.
	LayoutNHWC

	// LayoutNone means the tensor has no meaningful layout.
	LayoutNone
)

// String returns the canonical name of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutNCHW:
		return "NCHW"
	case LayoutNHWC:
		return "NHWC"
	case LayoutNone:
		return "NONE"
	default:
		return "ANY"
	}
}

// ParseLayout parses a single layout name. An empty name is LayoutAny,
// an unknown one falls back to LayoutNone.
func ParseLayout(s string) Layout {
	name := strings.TrimSpace(s)
	switch {
	case name == "":
		return LayoutAny
	case strings.EqualFold(name, "NCHW"):
		return LayoutNCHW
	case strings.EqualFold(name, "NHWC"):
		return LayoutNHWC
	case strings.EqualFold(name, "ANY"):
		return LayoutAny
	case strings.EqualFold(name, "NONE"):
		return LayoutNone
	default:
		logrus.Warnf("invalid layout %q, defaulting to NONE", s)
		return LayoutNone
	}
}

// Layouts holds one layout per tensor slot. The zero value is all LayoutAny.
type Layouts [SizeLimit]Layout

// ParseLayouts parses a comma separated layout list and returns the layouts
// together with the number of entries found. Unlisted slots stay LayoutAny.
func ParseLayouts(value string) (Layouts, int) {
	var layouts Layouts

	tokens := splitTensors(value, tensorSeparators, "layouts")
	for i, token := range tokens {
		layouts[i] = ParseLayout(token)
	}

	return layouts, len(tokens)
}

// String returns the canonical layout string of the first n tensors.
func (l *Layouts) String(n int) string {
	if n > SizeLimit {
		n = SizeLimit
	}

	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, l[i].String())
	}

	return strings.Join(names, ",")
}
