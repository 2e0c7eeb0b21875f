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

package subplugin

import (
	"slices"

	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// Properties is the configuration of a filter instance as seen by a backend.
type Properties struct {
	// FrameworkName is the name of the bound backend.
	FrameworkName string

	// FrameworkOpened is set once the backend has been opened.
	FrameworkOpened bool

	// ModelFiles are the model paths in the order given by the user.
	ModelFiles []string

	// InputConfigured latches InputMeta once the tensors are negotiated.
	InputConfigured bool
	InputMeta       tensor.Infos
	InputLayout     tensor.Layouts

	// OutputConfigured latches OutputMeta once the tensors are negotiated.
	OutputConfigured bool
	OutputMeta       tensor.Infos
	OutputLayout     tensor.Layouts

	// CustomProperties is passed verbatim to the backend.
	CustomProperties string

	// AcceleratorString is the raw accelerator preference, nil if never set.
	AcceleratorString *string

	// Accelerators is the resolved preference, only maintained for V1 backends.
	Accelerators []accelerator.Accelerator
}

// NumModels returns the number of model files.
func (p *Properties) NumModels() int {
	return len(p.ModelFiles)
}

// Clone returns a deep copy of the properties.
func (p *Properties) Clone() *Properties {
	c := *p
	c.ModelFiles = slices.Clone(p.ModelFiles)
	c.Accelerators = slices.Clone(p.Accelerators)
	if p.AcceleratorString != nil {
		s := *p.AcceleratorString
		c.AcceleratorString = &s
	}

	return &c
}
