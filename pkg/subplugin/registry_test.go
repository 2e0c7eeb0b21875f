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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

func invokeNop(*Properties, *any, []tensor.Memory, []tensor.Memory) error { return nil }

func dimNop(*Properties, *any, *tensor.Infos) error { return nil }

func setDimNop(*Properties, *any, *tensor.Infos, *tensor.Infos) error { return nil }

func legacy(name string) *Descriptor {
	return NewLegacy(&LegacyFramework{
		Name:               name,
		Invoke:             invokeNop,
		GetInputDimension:  dimNop,
		GetOutputDimension: dimNop,
	})
}

func v1(name string, accls ...accelerator.Accelerator) *Descriptor {
	return New(&Framework{
		Invoke: invokeNop,
		GetFrameworkInfo: func(_ *Properties, _ any, info *FrameworkInfo) error {
			info.Name = name
			info.Accelerators = accls
			return nil
		},
		GetModelInfo: func(*Properties, any, ModelInfoOp, *tensor.Infos, *tensor.Infos) error {
			return ErrNotSupported
		},
		EventHandler: func(*Properties, any, Event, *EventData) error {
			return ErrNotSupported
		},
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name       string
		descriptor *Descriptor
		expectErr  bool
		expected   string
	}{
		{
			name:       "v0 with get dimensions",
			descriptor: legacy("tflite"),
			expected:   "tflite",
		},
		{
			name: "v0 with set dimension",
			descriptor: NewLegacy(&LegacyFramework{
				Name:              "echo",
				Invoke:            invokeNop,
				SetInputDimension: setDimNop,
			}),
			expected: "echo",
		},
		{
			name: "v0 with only input dimension",
			descriptor: NewLegacy(&LegacyFramework{
				Name:              "half",
				Invoke:            invokeNop,
				GetInputDimension: dimNop,
			}),
			expectErr: true,
		},
		{
			name: "v0 without invoke",
			descriptor: NewLegacy(&LegacyFramework{
				Name:              "lazy",
				SetInputDimension: setDimNop,
			}),
			expectErr: true,
		},
		{
			name: "v0 without name",
			descriptor: NewLegacy(&LegacyFramework{
				Invoke:            invokeNop,
				SetInputDimension: setDimNop,
			}),
			expectErr: true,
		},
		{
			name:       "v0 without callbacks",
			descriptor: NewLegacy(nil),
			expectErr:  true,
		},
		{
			name:       "v1 complete",
			descriptor: v1("onnx", accelerator.CPU, accelerator.GPU),
			expected:   "onnx",
		},
		{
			name:       "v1 with empty name",
			descriptor: v1(""),
			expectErr:  true,
		},
		{
			name:       "v1 with unknown accelerator",
			descriptor: v1("bad", accelerator.Accelerator(42)),
			expectErr:  true,
		},
		{
			name: "v1 without event handler",
			descriptor: New(&Framework{
				Invoke: invokeNop,
				GetFrameworkInfo: func(_ *Properties, _ any, info *FrameworkInfo) error {
					info.Name = "partial"
					return nil
				},
				GetModelInfo: func(*Properties, any, ModelInfoOp, *tensor.Infos, *tensor.Infos) error { return nil },
			}),
			expectErr: true,
		},
		{
			name: "v1 with failing probe",
			descriptor: New(&Framework{
				Invoke: invokeNop,
				GetFrameworkInfo: func(*Properties, any, *FrameworkInfo) error {
					return errors.New("no device")
				},
				GetModelInfo: func(*Properties, any, ModelInfoOp, *tensor.Infos, *tensor.Infos) error { return nil },
				EventHandler: func(*Properties, any, Event, *EventData) error { return nil },
			}),
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.descriptor.Validate()
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, tc.descriptor.Name())
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(legacy("tflite")))
	require.NoError(t, r.Register(v1("onnx")))

	err := r.Register(legacy("tflite"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// Names are case-sensitive.
	require.NoError(t, r.Register(legacy("TFLite")))

	d, ok := r.Find("onnx")
	require.True(t, ok)
	assert.Equal(t, V1, d.ABI())
	assert.NotNil(t, d.Framework())
	assert.Nil(t, d.Legacy())

	assert.Equal(t, []string{"TFLite", "onnx", "tflite"}, r.Names())

	r.Unregister("onnx")
	_, ok = r.Find("onnx")
	assert.False(t, ok)

	// Unknown names are a no-op.
	r.Unregister("onnx")
	assert.Equal(t, []string{"TFLite", "tflite"}, r.Names())
}

func TestRegistryRefusesInvalid(t *testing.T) {
	r := NewRegistry()

	err := r.Register(NewLegacy(&LegacyFramework{Name: "broken"}))
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, r.Names())

	assert.ErrorIs(t, r.Register(nil), ErrValidationFailed)
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			name := fmt.Sprintf("backend-%d", i)
			assert.NoError(t, r.Register(legacy(name)))

			d, ok := r.Find(name)
			if assert.True(t, ok) {
				assert.Equal(t, name, d.Name())
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Names(), 32)
}

func TestDefaultRegistry(t *testing.T) {
	require.NoError(t, Register(legacy("default-test")))
	t.Cleanup(func() { Unregister("default-test") })

	_, ok := Find("default-test")
	assert.True(t, ok)
	assert.Same(t, Default(), Default())
}

func TestPropertiesClone(t *testing.T) {
	accl := "true:gpu"
	p := &Properties{
		ModelFiles:        []string{"a.tflite"},
		AcceleratorString: &accl,
		Accelerators:      []accelerator.Accelerator{accelerator.GPU},
	}

	c := p.Clone()
	c.ModelFiles[0] = "b.tflite"
	*c.AcceleratorString = "false"
	c.Accelerators[0] = accelerator.CPU

	assert.Equal(t, "a.tflite", p.ModelFiles[0])
	assert.Equal(t, "true:gpu", *p.AcceleratorString)
	assert.Equal(t, accelerator.GPU, p.Accelerators[0])
	assert.Equal(t, 1, c.NumModels())
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "reload-model", EventReloadModel.String())
	assert.Equal(t, "unknown", Event(99).String())
	assert.Equal(t, "v1", V1.String())
}
