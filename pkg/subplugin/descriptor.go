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
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed is returned when a descriptor lacks mandatory callbacks.
	ErrValidationFailed = errors.New("subplugin validation failed")

	// ErrDuplicate is returned when a backend name is already registered.
	ErrDuplicate = errors.New("subplugin already registered")

	// ErrNotSupported is returned by backends for queries or events they do not handle.
	ErrNotSupported = errors.New("not supported")
)

// ABI is the callback convention of a backend.
type ABI int

const (
	V0 ABI = iota
	V1
)

func (a ABI) String() string {
	switch a {
	case V0:
		return "v0"
	case V1:
		return "v1"
	default:
		return "unknown"
	}
}

// Descriptor describes one backend. Exactly one of the V0 or V1 callback
// sets is present, selected by ABI.
type Descriptor struct {
	name   string
	abi    ABI
	legacy *LegacyFramework
	fw     *Framework
}

// NewLegacy wraps a V0 callback set.
func NewLegacy(fw *LegacyFramework) *Descriptor {
	d := &Descriptor{abi: V0, legacy: fw}
	if fw != nil {
		d.name = fw.Name
	}

	return d
}

// New wraps a V1 callback set. The name is taken from GetFrameworkInfo at registration.
func New(fw *Framework) *Descriptor {
	return &Descriptor{abi: V1, fw: fw}
}

// Name returns the registered name of the backend.
func (d *Descriptor) Name() string {
	return d.name
}

// ABI returns the callback convention of the backend.
func (d *Descriptor) ABI() ABI {
	return d.abi
}

// Legacy returns the V0 callback set, nil for V1 backends.
func (d *Descriptor) Legacy() *LegacyFramework {
	return d.legacy
}

// Framework returns the V1 callback set, nil for V0 backends.
func (d *Descriptor) Framework() *Framework {
	return d.fw
}

// Validate checks the mandatory callbacks and resolves the backend name.
// V1 backends are probed through GetFrameworkInfo.
func (d *Descriptor) Validate() error {
	switch d.abi {
	case V0:
		fw := d.legacy
		if fw == nil {
			return fmt.Errorf("%w: missing v0 callbacks", ErrValidationFailed)
		}

		if fw.Name == "" {
			return fmt.Errorf("%w: empty name", ErrValidationFailed)
		}

		if fw.Invoke == nil {
			return fmt.Errorf("%w: %s has no invoke callback", ErrValidationFailed, fw.Name)
		}

		if !(fw.GetInputDimension != nil && fw.GetOutputDimension != nil) && fw.SetInputDimension == nil {
			return fmt.Errorf("%w: %s has no way to get tensor info", ErrValidationFailed, fw.Name)
		}

		d.name = fw.Name
	case V1:
		fw := d.fw
		if fw == nil {
			return fmt.Errorf("%w: missing v1 callbacks", ErrValidationFailed)
		}

		if fw.Invoke == nil || fw.GetFrameworkInfo == nil || fw.GetModelInfo == nil || fw.EventHandler == nil {
			return fmt.Errorf("%w: mandatory v1 callbacks are not defined", ErrValidationFailed)
		}

		var info FrameworkInfo
		if err := fw.GetFrameworkInfo(&Properties{}, nil, &info); err != nil {
			return fmt.Errorf("%w: unable to get framework info: %v", ErrValidationFailed, err)
		}

		if info.Name == "" {
			return fmt.Errorf("%w: framework info has an empty name", ErrValidationFailed)
		}

		for _, a := range info.Accelerators {
			if !a.IsValid() {
				return fmt.Errorf("%w: %s declares an unknown accelerator %d", ErrValidationFailed, info.Name, int(a))
			}
		}

		d.name = info.Name
	default:
		return fmt.Errorf("%w: unknown abi %d", ErrValidationFailed, int(d.abi))
	}

	return nil
}
