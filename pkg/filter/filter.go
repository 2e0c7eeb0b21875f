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
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/subplugin"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// Filter holds the configuration of one filter instance and drives the
// lifecycle of the backend bound to it.
//
// A Filter is not safe for concurrent use. Callers serialize property
// access, open, close and invoke per instance.
type Filter struct {
	registry *subplugin.Registry
	log      *logrus.Entry

	// desc is borrowed from the registry, nil when unbound.
	desc *subplugin.Descriptor

	// info is the last framework info reported by a V1 backend.
	info subplugin.FrameworkInfo

	prop subplugin.Properties

	// priv is the backend private data.
	priv any

	updatable bool
	silent    bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithRegistry binds backends from r instead of the process-wide registry.
func WithRegistry(r *subplugin.Registry) Option {
	return func(f *Filter) {
		f.registry = r
	}
}

// WithLogger sets the base log entry of the filter.
func WithLogger(entry *logrus.Entry) Option {
	return func(f *Filter) {
		f.log = entry
	}
}

// New creates an unbound filter. Filters start silent.
func New(opts ...Option) *Filter {
	f := &Filter{
		registry: subplugin.Default(),
		log:      logrus.NewEntry(logrus.StandardLogger()),
		silent:   true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// logger returns the log entry tagged with the bound framework.
func (f *Filter) logger() *logrus.Entry {
	if f.prop.FrameworkName == "" {
		return f.log
	}

	return f.log.WithField("framework", f.prop.FrameworkName)
}

// verbosef logs lifecycle events at info level unless the filter is silent.
func (f *Filter) verbosef(format string, args ...any) {
	if f.silent {
		f.logger().Debugf(format, args...)
		return
	}

	f.logger().Infof(format, args...)
}

// SetFramework binds the named backend. Binding the name already bound is
// a no-op. A different backend is closed first. If the name cannot be
// bound, the current binding is kept.
func (f *Filter) SetFramework(name string) error {
	if f.desc != nil && f.prop.FrameworkName == name {
		f.verbosef("framework %s already bound", name)
		return nil
	}

	desc, ok := f.registry.Find(name)
	if !ok {
		f.logger().Warnf("cannot identify the framework %q", name)
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, name)
	}

	var info subplugin.FrameworkInfo
	if desc.ABI() == subplugin.V1 {
		if err := desc.Framework().GetFrameworkInfo(&f.prop, nil, &info); err != nil {
			f.logger().Warnf("cannot get the framework info of %s: %v", name, err)
			return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, name, err)
		}
	}

	if f.desc != nil {
		f.Close()
		f.unbind()
	}

	f.desc = desc
	f.info = info
	f.prop.FrameworkName = name
	f.prop.Accelerators = nil

	// A preference given before binding is resolved against the new backend.
	if desc.ABI() == subplugin.V1 && f.prop.AcceleratorString != nil {
		f.prop.Accelerators = f.resolveAccelerators(*f.prop.AcceleratorString)
	}

	// is-updatable may have been granted by the previous backend.
	if f.updatable && !f.canReload() {
		f.logger().Warnf("framework %s cannot reload models, is-updatable reset", name)
		f.updatable = false
	}

	f.verbosef("framework %s bound (abi %s)", name, desc.ABI())
	return nil
}

func (f *Filter) unbind() {
	f.desc = nil
	f.info = subplugin.FrameworkInfo{}
	f.priv = nil
	f.prop.FrameworkName = ""
}

// Framework returns the bound framework name, empty when unbound.
func (f *Filter) Framework() string {
	return f.prop.FrameworkName
}

// ABI returns the callback convention of the bound backend.
func (f *Filter) ABI() (subplugin.ABI, bool) {
	if f.desc == nil {
		return 0, false
	}

	return f.desc.ABI(), true
}

// FrameworkInfo returns the info reported by the bound V1 backend.
func (f *Filter) FrameworkInfo() (subplugin.FrameworkInfo, bool) {
	if f.desc == nil || f.desc.ABI() != subplugin.V1 {
		return subplugin.FrameworkInfo{}, false
	}

	info := f.info
	info.Accelerators = slices.Clone(f.info.Accelerators)
	return info, true
}

// ModelFiles returns a copy of the configured model paths.
func (f *Filter) ModelFiles() []string {
	return slices.Clone(f.prop.ModelFiles)
}

// InputInfo returns the input tensor metadata.
func (f *Filter) InputInfo() tensor.Infos {
	return f.prop.InputMeta
}

// OutputInfo returns the output tensor metadata.
func (f *Filter) OutputInfo() tensor.Infos {
	return f.prop.OutputMeta
}

// Accelerators returns the resolved accelerator preference of a V1 backend.
func (f *Filter) Accelerators() []accelerator.Accelerator {
	return slices.Clone(f.prop.Accelerators)
}

// CustomProperties returns the custom properties handed to the backend.
func (f *Filter) CustomProperties() string {
	return f.prop.CustomProperties
}

// IsOpened reports whether the backend is opened.
func (f *Filter) IsOpened() bool {
	return f.prop.FrameworkOpened
}

// IsUpdatable reports whether model changes are reloaded into an opened backend.
func (f *Filter) IsUpdatable() bool {
	return f.updatable
}

// IsSilent reports whether lifecycle logging is reduced to debug level.
func (f *Filter) IsSilent() bool {
	return f.silent
}

// SetSilent toggles lifecycle logging.
func (f *Filter) SetSilent(silent bool) {
	f.silent = silent
}

// Properties returns a snapshot of the configuration.
func (f *Filter) Properties() *subplugin.Properties {
	return f.prop.Clone()
}
