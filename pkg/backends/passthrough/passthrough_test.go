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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/filter"
	"github.com/modelpack/tensorfilter/pkg/subplugin"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

func writeModel(t *testing.T, name string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0644))
	return path
}

func TestRegistered(t *testing.T) {
	d, ok := subplugin.Find(Name)
	require.True(t, ok)
	assert.Equal(t, subplugin.V1, d.ABI())
}

func TestParseOptions(t *testing.T) {
	testCases := []struct {
		name      string
		custom    string
		expected  map[string]string
		expectErr bool
	}{
		{name: "empty", custom: "", expected: map[string]string{}},
		{name: "single", custom: "threads:4", expected: map[string]string{"threads": "4"}},
		{name: "multiple with spaces", custom: "threads: 4, mode:fast", expected: map[string]string{"threads": "4", "mode": "fast"}},
		{name: "missing value separator", custom: "threads", expectErr: true},
		{name: "empty key", custom: ":4", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			options, err := ParseOptions(tc.custom)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, options)
		})
	}
}

func TestPick(t *testing.T) {
	assert.Equal(t, accelerator.GPU, pick([]accelerator.Accelerator{accelerator.NPU, accelerator.GPU, accelerator.CPU}))
	assert.Equal(t, accelerator.CPU, pick(nil))
	assert.Equal(t, accelerator.CPU, pick([]accelerator.Accelerator{accelerator.None}))
	assert.Equal(t, hostAccelerator(), pick([]accelerator.Accelerator{accelerator.Auto}))
	assert.Contains(t, []accelerator.Accelerator{accelerator.CPU, accelerator.CPUNeon}, hostAccelerator())
}

func TestFilterLifecycle(t *testing.T) {
	model := writeModel(t, "a.model")
	reloaded := writeModel(t, "b.model")

	f := filter.New()
	require.NoError(t, f.SetFramework(Name))
	require.NoError(t, f.SetModel(model))
	require.NoError(t, f.SetAccelerator("true:(gpu,cpu)"))
	require.NoError(t, f.SetCustomProperties("threads:2"))
	require.NoError(t, f.SetProperty("input", "4"))
	require.NoError(t, f.SetProperty("inputtype", "uint8"))
	require.NoError(t, f.SetUpdatable(true))

	require.NoError(t, f.Open())
	defer f.Close()
	require.NoError(t, f.ConfigureTensors())

	output, err := f.GetProperty("output")
	require.NoError(t, err)
	assert.Equal(t, "4", output)

	in := []tensor.Memory{{Data: []byte{1, 2, 3, 4}, Type: tensor.TypeUint8}}
	mem, err := tensor.NewMemory(f.OutputInfo().Info[0])
	require.NoError(t, err)
	out := []tensor.Memory{mem}
	require.NoError(t, f.Invoke(in, out))
	assert.Equal(t, in[0].Data, out[0].Data)

	// Hot paths.
	require.NoError(t, f.SetModel(reloaded))
	assert.Equal(t, []string{reloaded}, f.ModelFiles())

	err = f.SetModel(filepath.Join(t.TempDir(), "missing.model"))
	assert.ErrorIs(t, err, filter.ErrReloadFailed)
	assert.Equal(t, []string{reloaded}, f.ModelFiles())

	require.NoError(t, f.SetAccelerator("true:cpu.neon"))
	assert.Equal(t, "cpu.neon", f.Accelerator())

	assert.ErrorIs(t, f.SetCustomProperties("broken"), filter.ErrReloadFailed)
	assert.Equal(t, "threads:2", f.CustomProperties())

	require.NoError(t, f.SetProperty("outputlayout", "NHWC"))
	layout, _ := f.GetProperty("outputlayout")
	assert.Equal(t, "NHWC", layout)
}

func TestRunWithoutModel(t *testing.T) {
	f := filter.New()
	require.NoError(t, f.SetFramework(Name))
	require.NoError(t, f.Open())
	defer f.Close()

	assert.True(t, f.IsOpened())

	// Without input tensors there is nothing to negotiate.
	assert.Error(t, f.ConfigureTensors())
}
