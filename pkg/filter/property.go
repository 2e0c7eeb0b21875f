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
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/modelpack/tensorfilter/pkg/subplugin"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// Property identifies a filter property.
type Property int

const (
	PropSilent Property = iota
	PropFramework
	PropModel
	PropInput
	PropInputType
	PropInputName
	PropInputLayout
	PropOutput
	PropOutputType
	PropOutputName
	PropOutputLayout
	PropCustom
	PropSubPlugins
	PropAccelerator
	PropIsUpdatable
	propEnd
)

var propertyNames = [...]string{
	PropSilent:       "silent",
	PropFramework:    "framework",
	PropModel:        "model",
	PropInput:        "input",
	PropInputType:    "inputtype",
	PropInputName:    "inputname",
	PropInputLayout:  "inputlayout",
	PropOutput:       "output",
	PropOutputType:   "outputtype",
	PropOutputName:   "outputname",
	PropOutputLayout: "outputlayout",
	PropCustom:       "custom",
	PropSubPlugins:   "sub-plugins",
	PropAccelerator:  "accelerator",
	PropIsUpdatable:  "is-updatable",
}

func (p Property) String() string {
	if p < 0 || p >= propEnd {
		return "unknown"
	}

	return propertyNames[p]
}

// ParseProperty looks up a property by name.
func ParseProperty(name string) (Property, bool) {
	for p, n := range propertyNames {
		if n == name {
			return Property(p), true
		}
	}

	return 0, false
}

// AllProperties returns every property in declaration order.
func AllProperties() []Property {
	props := make([]Property, 0, propEnd)
	for p := Property(0); p < propEnd; p++ {
		props = append(props, p)
	}

	return props
}

// handler binds the string form of a property to the filter. A nil set
// marks a read-only property.
type handler struct {
	set func(f *Filter, value string) error
	get func(f *Filter) string
}

var handlers = [propEnd]handler{
	PropSilent: {
		set: func(f *Filter, value string) error {
			silent, err := cast.ToBoolE(value)
			if err != nil {
				return err
			}

			f.SetSilent(silent)
			return nil
		},
		get: func(f *Filter) string { return cast.ToString(f.silent) },
	},
	PropFramework: {
		set: (*Filter).SetFramework,
		get: (*Filter).Framework,
	},
	PropModel: {
		set: (*Filter).SetModel,
		get: func(f *Filter) string { return strings.Join(f.prop.ModelFiles, ",") },
	},
	PropInput:        tensorHandler(input, dimensions),
	PropInputType:    tensorHandler(input, types),
	PropInputName:    tensorHandler(input, names),
	PropInputLayout:  tensorHandler(input, layouts),
	PropOutput:       tensorHandler(output, dimensions),
	PropOutputType:   tensorHandler(output, types),
	PropOutputName:   tensorHandler(output, names),
	PropOutputLayout: tensorHandler(output, layouts),
	PropCustom: {
		set: (*Filter).SetCustomProperties,
		get: (*Filter).CustomProperties,
	},
	PropSubPlugins: {
		get: func(f *Filter) string { return strings.Join(f.SubPlugins(), ",") },
	},
	PropAccelerator: {
		set: (*Filter).SetAccelerator,
		get: (*Filter).Accelerator,
	},
	PropIsUpdatable: {
		set: func(f *Filter, value string) error {
			updatable, err := cast.ToBoolE(value)
			if err != nil {
				return err
			}

			return f.SetUpdatable(updatable)
		},
		get: func(f *Filter) string { return cast.ToString(f.updatable) },
	},
}

// Set sets a property from its string form.
func (f *Filter) Set(p Property, value string) error {
	if p < 0 || p >= propEnd {
		return fmt.Errorf("%w: %d", ErrUnknownProperty, int(p))
	}

	h := handlers[p]
	if h.set == nil {
		return fmt.Errorf("%w: %s is read-only", ErrConfigurationRejected, p)
	}

	if err := h.set(f, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", p, err)
	}

	return nil
}

// Get returns the string form of a property.
func (f *Filter) Get(p Property) (string, error) {
	if p < 0 || p >= propEnd {
		return "", fmt.Errorf("%w: %d", ErrUnknownProperty, int(p))
	}

	return handlers[p].get(f), nil
}

// SetProperty sets a property by name.
func (f *Filter) SetProperty(name, value string) error {
	p, ok := ParseProperty(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}

	return f.Set(p, value)
}

// GetProperty returns a property by name.
func (f *Filter) GetProperty(name string) (string, error) {
	p, ok := ParseProperty(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}

	return f.Get(p)
}

type side int

const (
	input side = iota
	output
)

func (s side) String() string {
	if s == input {
		return "input"
	}

	return "output"
}

type field int

const (
	dimensions field = iota
	types
	names
	layouts
)

var fieldNames = [...]string{
	dimensions: "dimensions",
	types:      "types",
	names:      "names",
	layouts:    "layouts",
}

func tensorHandler(s side, fd field) handler {
	return handler{
		set: func(f *Filter, value string) error { return f.setTensors(s, fd, value) },
		get: func(f *Filter) string { return f.tensors(s, fd) },
	}
}

// meta returns the metadata, layouts and configured latch of one side.
func (f *Filter) meta(s side) (*tensor.Infos, *tensor.Layouts, bool) {
	if s == input {
		return &f.prop.InputMeta, &f.prop.InputLayout, f.prop.InputConfigured
	}

	return &f.prop.OutputMeta, &f.prop.OutputLayout, f.prop.OutputConfigured
}

func (f *Filter) tensors(s side, fd field) string {
	info, layout, _ := f.meta(s)
	if info.NumTensors == 0 {
		return ""
	}

	switch fd {
	case dimensions:
		return info.DimensionsString()
	case types:
		return info.TypesString()
	case names:
		return info.NamesString()
	default:
		return layout.String(info.NumTensors)
	}
}

// setTensors parses tensor metadata given by the user. Once the tensors
// are configured only a V1 backend may accept a layout change.
func (f *Filter) setTensors(s side, fd field, value string) error {
	info, layout, configured := f.meta(s)

	if configured {
		if fd == layouts && f.desc != nil && f.desc.ABI() == subplugin.V1 {
			return f.updateLayouts(s, value)
		}

		f.logger().Errorf("cannot change %s %s once the tensors are configured", s, fieldNames[fd])
		return fmt.Errorf("%w: %s %s are configured", ErrConfigurationRejected, s, fieldNames[fd])
	}

	var (
		n   int
		err error
	)
	switch fd {
	case dimensions:
		n, err = info.ParseDimensions(value)
	case types:
		n, err = info.ParseTypes(value)
	case names:
		n = info.ParseNames(value)
	case layouts:
		*layout, n = tensor.ParseLayouts(value)
	}

	if err != nil {
		return fmt.Errorf("invalid %s %s %q: %w", s, fieldNames[fd], value, err)
	}

	if info.NumTensors > 0 && info.NumTensors != n {
		f.logger().Warnf("%s %s count %d does not match the previous %d tensors", s, fieldNames[fd], n, info.NumTensors)
	}

	info.NumTensors = n
	return nil
}

// updateLayouts offers a layout change to an opened V1 backend and keeps
// it only if the backend accepts it.
func (f *Filter) updateLayouts(s side, value string) error {
	info, layout, _ := f.meta(s)

	parsed, n := tensor.ParseLayouts(value)
	if info.NumTensors > 0 && info.NumTensors != n {
		f.logger().Warnf("%s layouts count %d does not match %d tensors", s, n, info.NumTensors)
	}

	event := subplugin.EventSetInputProperty
	if s == output {
		event = subplugin.EventSetOutputProperty
	}

	if err := f.desc.Framework().EventHandler(&f.prop, f.priv, event, &subplugin.EventData{Layouts: parsed}); err != nil {
		f.logger().Warnf("unable to update %s layouts: %v", s, err)
		return fmt.Errorf("%w: %s layouts: %w", ErrReloadFailed, s, err)
	}

	*layout = parsed
	return nil
}

// PseudoFrameworks are always listed first among the sub-plugins.
var PseudoFrameworks = []string{"custom", CustomEasy}

// SubPlugins lists the pseudo frameworks followed by the registered backends.
func (f *Filter) SubPlugins() []string {
	return append(append([]string{}, PseudoFrameworks...), f.registry.Names()...)
}
