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

package accelerator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/sirupsen/logrus"
)

// Resolver matches user accelerator preferences such as "true:(GPU,NPU,!CPU)"
// against the ordered list of accelerator names supported by a backend.
type Resolver struct {
	supported []string

	// enable matches preferences that turn acceleration on.
	enable *regexp2.Regexp

	// element extracts every supported name not negated with '!'.
	element *regexp2.Regexp
}

// NewResolver builds the matchers for the supported accelerator names.
// Names are matched case-insensitively, longer names win over their prefixes.
func NewResolver(supported []string) (*Resolver, error) {
	r := &Resolver{supported: supported}

	alternatives := alternation(supported)
	if alternatives == "" {
		return r, nil
	}

	var err error
	r.enable, err = regexp2.Compile(`^(true):?(\(?((!?(`+alternatives+`)),?\s*)*\)?)`, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("failed to compile accelerator matcher: %w", err)
	}

	r.element, err = regexp2.Compile(`(?<!!)(`+alternatives+`)`, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("failed to compile accelerator element matcher: %w", err)
	}

	return r, nil
}

// alternation returns the escaped names joined with '|', longest first.
func alternation(supported []string) string {
	escaped := make([]string, 0, len(supported))
	for _, name := range supported {
		if name = strings.TrimSpace(name); name != "" {
			escaped = append(escaped, regexp2.Escape(name))
		}
	}

	sort.SliceStable(escaped, func(i, j int) bool {
		return len(escaped[i]) > len(escaped[j])
	})

	return strings.Join(escaped, "|")
}

// Resolve translates the preference into accelerators, keeping the order the
// user wrote them in. A nil preference yields [Default], a preference that
// does not enable acceleration yields [None] and an enabling preference
// without any usable accelerator yields [Auto]. Duplicates are kept.
func (r *Resolver) Resolve(preference *string) []Accelerator {
	if preference == nil {
		return []Accelerator{Default}
	}

	if r.enable == nil {
		return []Accelerator{None}
	}

	enabled, err := r.enable.MatchString(*preference)
	if err != nil {
		logrus.Warnf("failed to match accelerator preference %q: %v", *preference, err)
		return []Accelerator{None}
	}

	if !enabled {
		return []Accelerator{None}
	}

	var matched []Accelerator
	m, err := r.element.FindStringMatch(*preference)
	for m != nil && err == nil {
		// Names the backend supports but this build does not know are skipped.
		if a, ok := Parse(m.String()); ok {
			matched = append(matched, a)
		}

		m, err = r.element.FindNextMatch(m)
	}

	if err != nil {
		logrus.Warnf("failed to scan accelerator preference %q: %v", *preference, err)
	}

	if len(matched) == 0 {
		return []Accelerator{Auto}
	}

	return matched
}

// ResolveOne returns the most preferred accelerator.
func (r *Resolver) ResolveOne(preference *string) Accelerator {
	return r.Resolve(preference)[0]
}

// Resolve is a shorthand for building a resolver and resolving a single preference.
// Malformed supported lists resolve to [None].
func Resolve(preference *string, supported []string) []Accelerator {
	r, err := NewResolver(supported)
	if err != nil {
		logrus.Warnf("unable to resolve accelerators: %v", err)
		if preference == nil {
			return []Accelerator{Default}
		}

		return []Accelerator{None}
	}

	return r.Resolve(preference)
}

// ResolveOne is a shorthand for resolving the most preferred accelerator.
func ResolveOne(preference *string, supported []string) Accelerator {
	return Resolve(preference, supported)[0]
}
