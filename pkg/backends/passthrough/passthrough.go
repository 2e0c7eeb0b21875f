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

package passthrough

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/sirupsen/logrus"

	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/subplugin"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// Name is the framework name of the passthrough backend.
const Name = "passthrough"

// supported lists the accelerators in preference order.
var supported = []accelerator.Accelerator{accelerator.CPU, accelerator.CPUNeon, accelerator.GPU}

func init() {
	if err := subplugin.Register(subplugin.FromBackend(New())); err != nil {
		logrus.Errorf("failed to register %s: %v", Name, err)
	}
}

// Backend copies every input tensor to the matching output tensor. It
// supports model reload, accelerator changes and custom properties at
// runtime, which makes it useful to exercise a filter end to end.
type Backend struct{}

// New creates the passthrough backend.
func New() *Backend {
	return &Backend{}
}

// state is the private data of an opened backend.
type state struct {
	models      []string
	accelerator accelerator.Accelerator
	options     map[string]string
}

func (b *Backend) GetFrameworkInfo(_ *subplugin.Properties, _ any, info *subplugin.FrameworkInfo) error {
	*info = subplugin.FrameworkInfo{
		Name:            Name,
		AllowInPlace:    true,
		RunWithoutModel: true,
		VerifyModelPath: true,
		Accelerators:    slices.Clone(supported),
	}

	return nil
}

func (b *Backend) Open(prop *subplugin.Properties, priv *any) error {
	options, err := ParseOptions(prop.CustomProperties)
	if err != nil {
		return err
	}

	*priv = &state{
		models:      slices.Clone(prop.ModelFiles),
		accelerator: pick(prop.Accelerators),
		options:     options,
	}

	return nil
}

func (b *Backend) Close(_ *subplugin.Properties, priv *any) {
	*priv = nil
}

func (b *Backend) Invoke(_ *subplugin.Properties, priv *any, input, output []tensor.Memory) error {
	if _, ok := (*priv).(*state); !ok {
		return errors.New("passthrough is not opened")
	}

	if len(input) != len(output) {
		return fmt.Errorf("got %d inputs but %d outputs", len(input), len(output))
	}

	for i := range input {
		if len(output[i].Data) < len(input[i].Data) {
			return fmt.Errorf("output %d holds %d bytes, need %d", i, len(output[i].Data), len(input[i].Data))
		}

		copy(output[i].Data, input[i].Data)
	}

	return nil
}

// GetModelInfo reports the configured input as both input and output.
func (b *Backend) GetModelInfo(prop *subplugin.Properties, _ any, op subplugin.ModelInfoOp, in, out *tensor.Infos) error {
	switch op {
	case subplugin.GetInOutInfo:
		if prop.InputMeta.NumTensors == 0 {
			return subplugin.ErrNotSupported
		}

		*in = prop.InputMeta
		*out = prop.InputMeta
	case subplugin.SetInputInfo:
		*out = *in
	default:
		return subplugin.ErrNotSupported
	}

	return nil
}

func (b *Backend) EventHandler(_ *subplugin.Properties, priv any, event subplugin.Event, data *subplugin.EventData) error {
	// Every event is handled.
	if data == nil {
		return nil
	}

	s, ok := priv.(*state)
	if !ok {
		return errors.New("passthrough is not opened")
	}

	switch event {
	case subplugin.EventReloadModel:
		for i, model := range data.ModelFiles {
			fi, err := os.Stat(model)
			if err != nil || !fi.Mode().IsRegular() {
				return fmt.Errorf("model file [%d] %q cannot be loaded", i, model)
			}
		}

		s.models = slices.Clone(data.ModelFiles)
	case subplugin.EventSetAccelerator:
		s.accelerator = pick(data.Accelerators)
	case subplugin.EventCustomProperty:
		options, err := ParseOptions(data.CustomProperties)
		if err != nil {
			return err
		}

		s.options = options
	case subplugin.EventSetInputProperty, subplugin.EventSetOutputProperty:
	default:
		return subplugin.ErrNotSupported
	}

	return nil
}

// pick returns the first preferred accelerator the backend supports.
// Automatic choices go to the host CPU.
func pick(preference []accelerator.Accelerator) accelerator.Accelerator {
	for _, a := range preference {
		switch {
		case slices.Contains(supported, a):
			return a
		case a == accelerator.Auto || a == accelerator.Default:
			return hostAccelerator()
		}
	}

	return accelerator.CPU
}

// hostAccelerator is cpu.neon when the host CPU advertises SIMD extensions.
var hostAccelerator = sync.OnceValue(func() accelerator.Accelerator {
	infos, err := cpu.Info()
	if err != nil {
		logrus.Debugf("failed to read cpu info: %v", err)
		return accelerator.CPU
	}

	for _, info := range infos {
		for _, flag := range info.Flags {
			if flag == "neon" || flag == "asimd" {
				return accelerator.CPUNeon
			}
		}
	}

	return accelerator.CPU
})

// ParseOptions parses custom properties of the form "key:value,key:value".
func ParseOptions(custom string) (map[string]string, error) {
	options := map[string]string{}
	if strings.TrimSpace(custom) == "" {
		return options, nil
	}

	for _, option := range strings.Split(custom, ",") {
		key, value, ok := strings.Cut(option, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid custom property %q, expect key:value", option)
		}

		options[key] = strings.TrimSpace(value)
	}

	return options, nil
}
