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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoot(t *testing.T) {
	root, err := NewRoot()
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, root.LogLevel)
	assert.Equal(t, "logs", filepath.Base(root.LogDir))
	assert.Equal(t, "cache", filepath.Base(root.CacheDir))
	assert.NoError(t, root.Validate())

	root.LogLevel = "loud"
	assert.Error(t, root.Validate())
}

func TestLoadFilter(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "filter.yaml",
			content: `framework: passthrough
models:
  - a.model
input:
  dimensions: "3:224:224"
  types: uint8
accelerator: "true:(gpu,cpu)"
updatable: true
silent: false
`,
		},
		{
			name: "json",
			file: "filter.json",
			content: `{"framework": "passthrough", "models": ["a.model"],
"input": {"dimensions": "3:224:224", "types": "uint8"},
"accelerator": "true:(gpu,cpu)", "updatable": true, "silent": false}`,
		},
		{
			name: "toml",
			file: "filter.toml",
			content: `framework = "passthrough"
models = ["a.model"]
accelerator = "true:(gpu,cpu)"
updatable = true
silent = false

[input]
dimensions = "3:224:224"
types = "uint8"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))

			cfg, err := LoadFilter(path)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			assert.Equal(t, "passthrough", cfg.Framework)
			assert.Equal(t, []string{"a.model"}, cfg.Models)
			assert.Equal(t, "3:224:224", cfg.Input.Dimensions)
			assert.Equal(t, "uint8", cfg.Input.Types)
			assert.Equal(t, "true:(gpu,cpu)", cfg.Accelerator)
			assert.True(t, cfg.Updatable)
			assert.False(t, cfg.Silent)
		})
	}
}

func TestLoadFilterMissing(t *testing.T) {
	_, err := LoadFilter(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFilterValidate(t *testing.T) {
	testCases := []struct {
		name      string
		filter    *Filter
		expectErr bool
	}{
		{name: "valid", filter: &Filter{Framework: "echo", Models: []string{"a", "models/**/*.bin"}}},
		{name: "missing framework", filter: &Filter{Models: []string{"a"}}, expectErr: true},
		{name: "comma in model", filter: &Filter{Framework: "echo", Models: []string{"a,b"}}, expectErr: true},
		{name: "invalid pattern", filter: &Filter{Framework: "echo", Models: []string{"models/[a"}}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.filter.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandModels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models", "v1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "a.bin"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "v1", "b.bin"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "v1", "c.txt"), nil, 0644))

	cfg := &Filter{Framework: "echo", Models: []string{"models/**/*.bin", "missing.bin"}}
	require.NoError(t, cfg.ExpandModels(dir))

	assert.Equal(t, []string{
		filepath.Join(dir, "models", "a.bin"),
		filepath.Join(dir, "models", "v1", "b.bin"),
		filepath.Join(dir, "missing.bin"),
	}, cfg.Models)
}

func TestSettings(t *testing.T) {
	cfg := NewFilter()
	cfg.Framework = "passthrough"
	cfg.Models = []string{"a", "b"}
	cfg.Output.Layouts = "NHWC"
	cfg.Updatable = true

	assert.Equal(t, []Setting{
		{Name: "silent", Value: "true"},
		{Name: "framework", Value: "passthrough"},
		{Name: "model", Value: "a,b"},
		{Name: "outputlayout", Value: "NHWC"},
		{Name: "is-updatable", Value: "true"},
	}, cfg.Settings())
}
