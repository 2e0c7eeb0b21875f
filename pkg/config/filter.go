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
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

// Tensors holds the user given tensor properties of one side of a filter.
type Tensors struct {
	Dimensions string `mapstructure:"dimensions"`
	Types      string `mapstructure:"types"`
	Names      string `mapstructure:"names"`
	Layouts    string `mapstructure:"layouts"`
}

// Filter is the file form of a filter configuration.
type Filter struct {
	Framework   string   `mapstructure:"framework"`
	Models      []string `mapstructure:"models"`
	Input       Tensors  `mapstructure:"input"`
	Output      Tensors  `mapstructure:"output"`
	Custom      string   `mapstructure:"custom"`
	Accelerator string   `mapstructure:"accelerator"`
	Updatable   bool     `mapstructure:"updatable"`
	Silent      bool     `mapstructure:"silent"`
}

// Setting is a property name and its string value.
type Setting struct {
	Name  string
	Value string
}

func NewFilter() *Filter {
	return &Filter{
		Silent: true,
	}
}

// LoadFilter reads a filter configuration file. The format follows the
// file extension, e.g. yaml, json or toml.
func LoadFilter(path string) (*Filter, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read filter config %s: %w", path, err)
	}

	cfg := NewFilter()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode filter config %s: %w", path, err)
	}

	return cfg, nil
}

func (f *Filter) Validate() error {
	if len(f.Framework) == 0 {
		return fmt.Errorf("framework is required")
	}

	for i, model := range f.Models {
		if strings.Contains(model, ",") {
			return fmt.Errorf("model %d %q must not contain a comma", i, model)
		}

		if !doublestar.ValidatePathPattern(model) {
			return fmt.Errorf("model %d %q is not a valid path pattern", i, model)
		}
	}

	return nil
}

// ExpandModels resolves relative model paths against workDir and expands
// glob patterns such as "models/**/*.tflite" in place. Patterns without a
// match are kept verbatim so that opening reports them.
func (f *Filter) ExpandModels(workDir string) error {
	var expanded []string
	for _, model := range f.Models {
		if !filepath.IsAbs(model) {
			model = filepath.Join(workDir, model)
		}

		matches, err := doublestar.FilepathGlob(model, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("failed to expand model %q: %w", model, err)
		}

		if len(matches) == 0 {
			expanded = append(expanded, model)
			continue
		}

		slices.Sort(matches)
		expanded = append(expanded, matches...)
	}

	f.Models = expanded
	return nil
}

// Settings returns the filter properties in the order they must be applied:
// the framework first, so that later properties see the bound backend.
func (f *Filter) Settings() []Setting {
	settings := []Setting{
		{Name: "silent", Value: strconv.FormatBool(f.Silent)},
		{Name: "framework", Value: f.Framework},
	}

	add := func(name, value string) {
		if value != "" {
			settings = append(settings, Setting{Name: name, Value: value})
		}
	}

	add("model", strings.Join(f.Models, ","))
	add("input", f.Input.Dimensions)
	add("inputtype", f.Input.Types)
	add("inputname", f.Input.Names)
	add("inputlayout", f.Input.Layouts)
	add("output", f.Output.Dimensions)
	add("outputtype", f.Output.Types)
	add("outputname", f.Output.Names)
	add("outputlayout", f.Output.Layouts)
	add("custom", f.Custom)
	add("accelerator", f.Accelerator)

	if f.Updatable {
		settings = append(settings, Setting{Name: "is-updatable", Value: "true"})
	}

	return settings
}
