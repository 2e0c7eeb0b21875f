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

package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/subplugin"
)

// transact applies mutate to the live configuration and hands the backend
// the configuration as it was before. If dispatch fails the live
// configuration is restored.
func (f *Filter) transact(what string, mutate func(p *subplugin.Properties), dispatch func(before *subplugin.Properties) error) error {
	before := f.prop.Clone()

	mutate(&f.prop)
	if err := dispatch(before.Clone()); err != nil {
		f.prop = *before
		f.logger().Errorf("failed to update %s, configuration restored: %v", what, err)
		return fmt.Errorf("%w: %s: %w", ErrReloadFailed, what, err)
	}

	return nil
}

// SetModel sets the model files from a comma separated path list.
func (f *Filter) SetModel(value string) error {
	var files []string
	if value != "" {
		files = strings.Split(value, ",")
	}

	return f.SetModelFiles(files)
}

// SetModelFiles replaces the model files. Once opened, an updatable
// backend reloads the new models and a failed reload keeps the previous
// files. A legacy backend that is not updatable refuses the change.
func (f *Filter) SetModelFiles(files []string) error {
	files = slices.Clone(files)

	if !f.prop.FrameworkOpened {
		f.prop.ModelFiles = files
		return nil
	}

	if !f.updatable || (f.desc.ABI() == subplugin.V0 && f.desc.Legacy().ReloadModel == nil) {
		if f.desc.ABI() == subplugin.V0 {
			f.logger().Error("cannot change the model once the framework is opened")
			return fmt.Errorf("%w: framework %s is not updatable", ErrConfigurationRejected, f.prop.FrameworkName)
		}

		f.prop.ModelFiles = files
		return nil
	}

	return f.transact("model", func(p *subplugin.Properties) {
		p.ModelFiles = files
	}, func(before *subplugin.Properties) error {
		switch f.desc.ABI() {
		case subplugin.V0:
			return f.desc.Legacy().ReloadModel(before, &f.priv, slices.Clone(files))
		default:
			return f.desc.Framework().EventHandler(before, f.priv, subplugin.EventReloadModel, &subplugin.EventData{
				ModelFiles: slices.Clone(files),
			})
		}
	})
}

// SetCustomProperties sets the opaque backend options. Once opened, only
// V1 backends accept a change, through their event handler.
func (f *Filter) SetCustomProperties(value string) error {
	if !f.prop.FrameworkOpened {
		f.prop.CustomProperties = value
		return nil
	}

	if f.desc.ABI() == subplugin.V0 {
		f.logger().Error("cannot change custom properties once the framework is opened")
		return fmt.Errorf("%w: custom properties of a legacy framework are fixed once opened", ErrConfigurationRejected)
	}

	return f.transact("custom properties", func(p *subplugin.Properties) {
		p.CustomProperties = value
	}, func(before *subplugin.Properties) error {
		return f.desc.Framework().EventHandler(before, f.priv, subplugin.EventCustomProperty, &subplugin.EventData{
			CustomProperties: value,
		})
	})
}

// SetAccelerator sets the accelerator preference, e.g. "true:(gpu,!cpu)".
// The raw string is always kept; V1 backends also get the resolved list.
// Once opened, only V1 backends accept a change, through their event handler.
func (f *Filter) SetAccelerator(value string) error {
	if !f.prop.FrameworkOpened {
		f.prop.AcceleratorString = &value
		if f.desc != nil && f.desc.ABI() == subplugin.V1 {
			f.prop.Accelerators = f.resolveAccelerators(value)
		}

		return nil
	}

	if f.desc.ABI() == subplugin.V0 {
		f.logger().Error("cannot change the accelerator once the framework is opened")
		return fmt.Errorf("%w: accelerator of a legacy framework is fixed once opened", ErrConfigurationRejected)
	}

	accls := f.resolveAccelerators(value)
	return f.transact("accelerator", func(p *subplugin.Properties) {
		p.AcceleratorString = &value
		p.Accelerators = accls
	}, func(before *subplugin.Properties) error {
		return f.desc.Framework().EventHandler(before, f.priv, subplugin.EventSetAccelerator, &subplugin.EventData{
			Accelerators: slices.Clone(accls),
		})
	})
}

// resolveAccelerators resolves the preference against the accelerators
// the bound V1 backend supports.
func (f *Filter) resolveAccelerators(preference string) []accelerator.Accelerator {
	accls := accelerator.Dedup(accelerator.Resolve(&preference, f.info.AcceleratorNames()))
	f.verbosef("accelerator %q resolved to %s", preference, accelerator.Join(accls))
	return accls
}

// Accelerator returns the resolved preference of a V1 backend, or the raw
// preference otherwise.
func (f *Filter) Accelerator() string {
	if f.desc != nil && f.desc.ABI() == subplugin.V1 {
		return accelerator.Join(f.prop.Accelerators)
	}

	if f.prop.AcceleratorString == nil {
		return ""
	}

	return *f.prop.AcceleratorString
}

// canReload reports whether the bound backend can reload models into an
// opened instance. An unbound filter defers the check to binding.
func (f *Filter) canReload() bool {
	if f.desc == nil {
		return true
	}

	switch f.desc.ABI() {
	case subplugin.V0:
		return f.desc.Legacy().ReloadModel != nil
	default:
		// A nil event data probes for the capability.
		err := f.desc.Framework().EventHandler(&f.prop, f.priv, subplugin.EventReloadModel, nil)
		return !errors.Is(err, subplugin.ErrNotSupported)
	}
}

// SetUpdatable allows model changes to be reloaded into an opened backend.
// It is refused when the bound backend cannot reload models.
func (f *Filter) SetUpdatable(updatable bool) error {
	if updatable && !f.canReload() {
		return fmt.Errorf("%w: framework %s cannot reload models", ErrConfigurationRejected, f.prop.FrameworkName)
	}

	f.updatable = updatable
	return nil
}
