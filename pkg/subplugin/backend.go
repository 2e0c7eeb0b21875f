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

import "github.com/modelpack/tensorfilter/pkg/tensor"

// Backend is a V1 backend expressed as an interface.
type Backend interface {
	Open(prop *Properties, priv *any) error
	Close(prop *Properties, priv *any)
	Invoke(prop *Properties, priv *any, input, output []tensor.Memory) error
	GetFrameworkInfo(prop *Properties, priv any, info *FrameworkInfo) error
	GetModelInfo(prop *Properties, priv any, op ModelInfoOp, in, out *tensor.Infos) error
	EventHandler(prop *Properties, priv any, event Event, data *EventData) error
}

// FromBackend wraps a Backend into a V1 descriptor.
func FromBackend(b Backend) *Descriptor {
	return New(&Framework{
		Invoke:           b.Invoke,
		GetFrameworkInfo: b.GetFrameworkInfo,
		GetModelInfo:     b.GetModelInfo,
		EventHandler:     b.EventHandler,
		Open:             b.Open,
		Close:            b.Close,
	})
}
