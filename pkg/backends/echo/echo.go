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

// Package echo provides a legacy backend that echoes its input. Output
// buffers are allocated by the backend during invoke.
package echo

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/tensorfilter/pkg/subplugin"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// Name is the framework name of the echo backend.
const Name = "echo"

func init() {
	if err := subplugin.Register(Descriptor()); err != nil {
		logrus.Errorf("failed to register %s: %v", Name, err)
	}
}

type state struct {
	models []string
	loads  int
}

// Descriptor returns the legacy descriptor of the echo backend.
func Descriptor() *subplugin.Descriptor {
	return subplugin.NewLegacy(&subplugin.LegacyFramework{
		Name:                  Name,
		AllocateInInvoke:      true,
		RunWithoutModel:       true,
		VerifyModelPath:       true,
		Invoke:                invoke,
		SetInputDimension:     setInputDimension,
		Open:                  open,
		Close:                 closeState,
		ReloadModel:           reloadModel,
		CheckAllocateInInvoke: checkAllocateInInvoke,
	})
}

func open(prop *subplugin.Properties, priv *any) error {
	*priv = &state{models: slices.Clone(prop.ModelFiles), loads: 1}
	return nil
}

func closeState(_ *subplugin.Properties, priv *any) {
	*priv = nil
}

func setInputDimension(_ *subplugin.Properties, _ *any, in, out *tensor.Infos) error {
	*out = *in
	return nil
}

func invoke(_ *subplugin.Properties, priv *any, input, output []tensor.Memory) error {
	if _, ok := (*priv).(*state); !ok {
		return errors.New("echo is not opened")
	}

	if len(input) != len(output) {
		return fmt.Errorf("got %d inputs but %d outputs", len(input), len(output))
	}

	for i := range input {
		output[i] = tensor.Memory{Data: slices.Clone(input[i].Data), Type: input[i].Type}
	}

	return nil
}

func reloadModel(_ *subplugin.Properties, priv *any, modelFiles []string) error {
	s, ok := (*priv).(*state)
	if !ok {
		return errors.New("echo is not opened")
	}

	if len(modelFiles) == 0 {
		return errors.New("no model to reload")
	}

	s.models = slices.Clone(modelFiles)
	s.loads++
	return nil
}

func checkAllocateInInvoke(priv *any) error {
	if _, ok := (*priv).(*state); !ok {
		return errors.New("echo is not opened")
	}

	return nil
}
