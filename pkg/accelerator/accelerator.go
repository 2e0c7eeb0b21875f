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
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// Accelerator is a hardware target a backend may be asked to run on.
type Accelerator int

const (
	None Accelerator = iota
	Default
	Auto
	CPU
	CPUNeon
	GPU
	NPU
	NPUMovidius
	NPUEdgeTPU
	NPUVivante
	NPUSRCN
	NPUSR
)

var names = [...]string{
	None:        "none",
	Default:     "default",
	Auto:        "auto",
	CPU:         "cpu",
	CPUNeon:     "cpu.neon",
	GPU:         "gpu",
	NPU:         "npu",
	NPUMovidius: "npu.movidius",
	NPUEdgeTPU:  "npu.edgetpu",
	NPUVivante:  "npu.vivante",
	NPUSRCN:     "npu.srcn",
	NPUSR:       "npu.sr",
}

// String returns the canonical name, "none" for unknown values.
func (a Accelerator) String() string {
	if !a.IsValid() {
		return names[None]
	}

	return names[a]
}

// IsValid reports whether a is a known accelerator.
func (a Accelerator) IsValid() bool {
	return a >= None && int(a) < len(names)
}

// Parse looks up an accelerator by its case-insensitive canonical name.
func Parse(name string) (Accelerator, bool) {
	name = strings.TrimSpace(name)
	for a, n := range names {
		if strings.EqualFold(n, name) {
			return Accelerator(a), true
		}
	}

	return None, false
}

// Names returns the canonical names of the given accelerators.
func Names(accls []Accelerator) []string {
	out := make([]string, 0, len(accls))
	for _, a := range accls {
		out = append(out, a.String())
	}

	return out
}

// Join returns the comma joined canonical names of the given accelerators.
func Join(accls []Accelerator) string {
	return strings.Join(Names(accls), ",")
}

// Dedup returns the accelerators in first-seen order with duplicates removed.
func Dedup(accls []Accelerator) []Accelerator {
	set := linkedhashset.New()
	for _, a := range accls {
		set.Add(a)
	}

	out := make([]Accelerator, 0, set.Size())
	for _, v := range set.Values() {
		out = append(out, v.(Accelerator))
	}

	return out
}
