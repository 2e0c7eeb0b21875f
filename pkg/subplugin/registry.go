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
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Registry maps backend names to descriptors. Lookups read an immutable
// snapshot, writers copy the map under a mutex and publish the new snapshot.
type Registry struct {
	mu      sync.Mutex
	entries atomic.Pointer[map[string]*Descriptor]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := map[string]*Descriptor{}
	r.entries.Store(&empty)
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})

	return defaultRegistry
}

// Register validates the descriptor and adds it under its name. Names are
// case-sensitive and must be unique.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrValidationFailed)
	}

	if err := d.Validate(); err != nil {
		logrus.Errorf("refusing to register subplugin: %v", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.entries.Load()
	if _, ok := current[d.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, d.name)
	}

	next := maps.Clone(current)
	next[d.name] = d
	r.entries.Store(&next)

	logrus.Debugf("registered subplugin %s (abi %s)", d.name, d.abi)
	return nil
}

// Unregister removes the named backend. Unknown names are ignored. Filters
// still bound to the backend must be closed by the caller first.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.entries.Load()
	if _, ok := current[name]; !ok {
		return
	}

	next := maps.Clone(current)
	delete(next, name)
	r.entries.Store(&next)

	logrus.Debugf("unregistered subplugin %s", name)
}

// Find looks up a backend by its exact name.
func (r *Registry) Find(name string) (*Descriptor, bool) {
	d, ok := (*r.entries.Load())[name]
	return d, ok
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(*r.entries.Load()))
}

// Register adds the descriptor to the process-wide registry.
func Register(d *Descriptor) error {
	return Default().Register(d)
}

// Unregister removes the named backend from the process-wide registry.
func Unregister(name string) {
	Default().Unregister(name)
}

// Find looks up a backend in the process-wide registry.
func Find(name string) (*Descriptor, bool) {
	return Default().Find(name)
}
