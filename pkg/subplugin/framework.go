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
	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// OpenFunc prepares the backend for the configured model. The backend may
// store its state in *priv, which is handed back on every later call.
type OpenFunc func(prop *Properties, priv *any) error

// CloseFunc releases the backend state stored in *priv.
type CloseFunc func(prop *Properties, priv *any)

// InvokeFunc runs the model on input and fills output.
type InvokeFunc func(prop *Properties, priv *any, input, output []tensor.Memory) error

// DimensionFunc reports the input or output tensors of the opened model.
type DimensionFunc func(prop *Properties, priv *any, info *tensor.Infos) error

// SetDimensionFunc derives the output tensors from the given input tensors.
type SetDimensionFunc func(prop *Properties, priv *any, in *tensor.Infos, out *tensor.Infos) error

// ReloadModelFunc swaps the opened model for modelFiles. prop is the
// configuration before the change.
type ReloadModelFunc func(prop *Properties, priv *any, modelFiles []string) error

// AllocateInInvokeFunc confirms the backend allocates output buffers itself.
type AllocateInInvokeFunc func(priv *any) error

// FrameworkInfoFunc describes the backend. priv is nil when the backend
// has not been opened yet.
type FrameworkInfoFunc func(prop *Properties, priv any, info *FrameworkInfo) error

// ModelInfoFunc queries or negotiates the model tensors.
type ModelInfoFunc func(prop *Properties, priv any, op ModelInfoOp, in, out *tensor.Infos) error

// EventHandlerFunc applies a runtime change. prop is the configuration before
// the change and data carries the new values. Backends return ErrNotSupported
// for events they do not handle; a nil data is a capability probe.
type EventHandlerFunc func(prop *Properties, priv any, event Event, data *EventData) error

// LegacyFramework is the V0 callback set: fixed callbacks and static flags.
type LegacyFramework struct {
	Name string

	AllowInPlace     bool
	AllocateInInvoke bool
	RunWithoutModel  bool
	VerifyModelPath  bool

	// Invoke is mandatory.
	Invoke InvokeFunc

	// Either both GetInputDimension and GetOutputDimension, or SetInputDimension is mandatory.
	GetInputDimension  DimensionFunc
	GetOutputDimension DimensionFunc
	SetInputDimension  SetDimensionFunc

	Open                  OpenFunc
	Close                 CloseFunc
	ReloadModel           ReloadModelFunc
	CheckAllocateInInvoke AllocateInInvokeFunc
}

// Framework is the V1 callback set: the backend describes itself through
// GetFrameworkInfo and receives runtime changes through EventHandler.
type Framework struct {
	Invoke           InvokeFunc
	GetFrameworkInfo FrameworkInfoFunc
	GetModelInfo     ModelInfoFunc
	EventHandler     EventHandlerFunc

	Open  OpenFunc
	Close CloseFunc
}

// FrameworkInfo is what a V1 backend reports about itself.
type FrameworkInfo struct {
	Name string

	AllowInPlace     bool
	AllocateInInvoke bool
	RunWithoutModel  bool
	VerifyModelPath  bool

	// Accelerators lists the supported accelerators in preference order.
	Accelerators []accelerator.Accelerator
}

// AcceleratorNames returns the canonical names of the supported accelerators.
func (i *FrameworkInfo) AcceleratorNames() []string {
	return accelerator.Names(i.Accelerators)
}

// ModelInfoOp selects the GetModelInfo query.
type ModelInfoOp int

const (
	// GetInOutInfo asks for the input and output tensors of the model.
	GetInOutInfo ModelInfoOp = iota

	// SetInputInfo proposes input tensors and asks for the resulting output.
	SetInputInfo
)

// Event identifies a runtime change delivered to EventHandler.
type Event int

const (
	EventReloadModel Event = iota
	EventCustomProperty
	EventSetInputProperty
	EventSetOutputProperty
	EventSetAccelerator
)

var eventNames = [...]string{
	EventReloadModel:       "reload-model",
	EventCustomProperty:    "custom-property",
	EventSetInputProperty:  "set-input-property",
	EventSetOutputProperty: "set-output-property",
	EventSetAccelerator:    "set-accelerator",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}

	return eventNames[e]
}

// EventData carries the new values of a runtime change.
type EventData struct {
	ModelFiles       []string
	CustomProperties string
	Accelerators     []accelerator.Accelerator
	Info             *tensor.Infos
	Layouts          tensor.Layouts
}
