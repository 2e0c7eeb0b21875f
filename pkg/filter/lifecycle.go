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
	"os"

	"github.com/modelpack/tensorfilter/pkg/subplugin"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// CustomEasy is the pseudo framework whose models are registered in
// process, so its model paths are never checked on disk.
const CustomEasy = "custom-easy"

func (f *Filter) runWithoutModel() bool {
	if f.desc.ABI() == subplugin.V0 {
		return f.desc.Legacy().RunWithoutModel
	}

	return f.info.RunWithoutModel
}

func (f *Filter) verifyModelPathEnabled() bool {
	if f.prop.FrameworkName == CustomEasy {
		return false
	}

	if f.desc.ABI() == subplugin.V0 {
		return f.desc.Legacy().VerifyModelPath
	}

	return f.info.VerifyModelPath
}

// verifyModelPaths checks every model path and reports all missing ones.
func (f *Filter) verifyModelPaths() error {
	if !f.verifyModelPathEnabled() {
		return nil
	}

	var errs []error
	for i, path := range f.prop.ModelFiles {
		fi, err := os.Stat(path)
		if err == nil && fi.Mode().IsRegular() {
			continue
		}

		f.logger().Errorf("cannot find the model file [%d]: %s", i, path)
		errs = append(errs, fmt.Errorf("model file [%d] %q is not a regular file", i, path))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrOpenPrecondition, errors.Join(errs...))
	}

	return nil
}

// Open opens the bound backend. At least one model is required unless the
// backend runs without one, and with model path verification enabled every
// model file must exist. V1 backends are queried for their framework and
// model info right after opening; if that fails the backend is closed again.
func (f *Filter) Open() error {
	if f.prop.FrameworkOpened {
		return nil
	}

	if f.desc == nil {
		return fmt.Errorf("%w: no framework bound", ErrOpenPrecondition)
	}

	if !f.runWithoutModel() && (len(f.prop.ModelFiles) == 0 || f.prop.ModelFiles[0] == "") {
		return fmt.Errorf("%w: framework %s requires a model", ErrOpenPrecondition, f.prop.FrameworkName)
	}

	if err := f.verifyModelPaths(); err != nil {
		return err
	}

	var open subplugin.OpenFunc
	switch f.desc.ABI() {
	case subplugin.V0:
		open = f.desc.Legacy().Open
	case subplugin.V1:
		open = f.desc.Framework().Open
	}

	if open != nil {
		if err := open(&f.prop, &f.priv); err != nil {
			f.priv = nil
			return fmt.Errorf("failed to open framework %s: %w", f.prop.FrameworkName, err)
		}
	}

	if f.desc.ABI() == subplugin.V1 {
		if err := f.refreshModelInfo(); err != nil {
			f.closeBackend()
			return err
		}
	}

	f.prop.FrameworkOpened = true
	f.verbosef("framework %s opened with %d model(s)", f.prop.FrameworkName, f.prop.NumModels())
	return nil
}

// refreshModelInfo updates the framework info and the tensor metadata of an
// opened V1 backend. Backends that cannot report tensors yet are tolerated.
func (f *Filter) refreshModelInfo() error {
	fw := f.desc.Framework()

	var info subplugin.FrameworkInfo
	if err := fw.GetFrameworkInfo(&f.prop, f.priv, &info); err != nil {
		return fmt.Errorf("failed to get the framework info of %s: %w", f.prop.FrameworkName, err)
	}
	f.info = info

	in, out := f.prop.InputMeta, f.prop.OutputMeta
	err := fw.GetModelInfo(&f.prop, f.priv, subplugin.GetInOutInfo, &in, &out)
	switch {
	case err == nil:
		f.adopt("input", &f.prop.InputMeta, &in)
		f.adopt("output", &f.prop.OutputMeta, &out)
	case errors.Is(err, subplugin.ErrNotSupported):
	default:
		return fmt.Errorf("failed to get the model info of %s: %w", f.prop.FrameworkName, err)
	}

	return nil
}

// adopt replaces the user metadata with what the backend reports.
func (f *Filter) adopt(side string, current, reported *tensor.Infos) {
	if current.NumTensors > 0 && !current.Equal(reported) {
		table, _ := tensor.Compare(current, reported)
		f.logger().Warnf("%s tensors given do not match the model, using the model:\n%s", side, table)
	}

	keepNames(current, reported)
	*current = *reported
}

// keepNames copies user given names into tensors the backend left unnamed.
func keepNames(current, reported *tensor.Infos) {
	for i := 0; i < reported.NumTensors && i < current.NumTensors; i++ {
		if reported.Info[i].Name == "" {
			reported.Info[i].Name = current.Info[i].Name
		}
	}
}

// closeBackend invokes the close callback of the bound backend.
func (f *Filter) closeBackend() {
	var closeFn subplugin.CloseFunc
	switch f.desc.ABI() {
	case subplugin.V0:
		closeFn = f.desc.Legacy().Close
	case subplugin.V1:
		closeFn = f.desc.Framework().Close
	}

	if closeFn != nil {
		closeFn(&f.prop, &f.priv)
	}

	f.priv = nil
}

// Close closes an opened backend and unbinds it. Closing a filter that is
// not opened is a no-op.
func (f *Filter) Close() {
	if !f.prop.FrameworkOpened {
		return
	}

	name := f.prop.FrameworkName
	f.closeBackend()

	f.prop.InputConfigured = false
	f.prop.OutputConfigured = false
	f.prop.FrameworkOpened = false
	f.unbind()

	f.verbosef("framework %s closed", name)
}

// ConfigureTensors negotiates the input and output tensors with the opened
// backend and latches them. Tensors the user already set must match what
// the backend reports.
func (f *Filter) ConfigureTensors() error {
	if !f.prop.FrameworkOpened {
		return ErrNotOpened
	}

	if f.prop.InputConfigured && f.prop.OutputConfigured {
		return nil
	}

	var in, out tensor.Infos
	if err := f.queryTensors(&in, &out); err != nil {
		return fmt.Errorf("failed to get the tensor info of %s: %w", f.prop.FrameworkName, err)
	}

	if err := f.checkMatch("input", &f.prop.InputMeta, &in); err != nil {
		return err
	}

	if err := f.checkMatch("output", &f.prop.OutputMeta, &out); err != nil {
		return err
	}

	keepNames(&f.prop.InputMeta, &in)
	keepNames(&f.prop.OutputMeta, &out)
	f.prop.InputMeta = in
	f.prop.OutputMeta = out
	f.prop.InputConfigured = true
	f.prop.OutputConfigured = true
	f.verbosef("tensors configured, input %s, output %s", in.DimensionsString(), out.DimensionsString())
	return nil
}

func (f *Filter) queryTensors(in, out *tensor.Infos) error {
	switch f.desc.ABI() {
	case subplugin.V0:
		fw := f.desc.Legacy()
		if fw.GetInputDimension != nil && fw.GetOutputDimension != nil {
			if err := fw.GetInputDimension(&f.prop, &f.priv, in); err != nil {
				return err
			}

			return fw.GetOutputDimension(&f.prop, &f.priv, out)
		}

		if f.prop.InputMeta.NumTensors == 0 {
			return errors.New("input tensors are not given")
		}

		*in = f.prop.InputMeta
		return fw.SetInputDimension(&f.prop, &f.priv, in, out)
	default:
		fw := f.desc.Framework()
		err := fw.GetModelInfo(&f.prop, f.priv, subplugin.GetInOutInfo, in, out)
		if !errors.Is(err, subplugin.ErrNotSupported) {
			return err
		}

		if f.prop.InputMeta.NumTensors == 0 {
			return errors.New("input tensors are not given")
		}

		*in = f.prop.InputMeta
		return fw.GetModelInfo(&f.prop, f.priv, subplugin.SetInputInfo, in, out)
	}
}

// checkMatch refuses reported tensors that differ from the ones the user set.
func (f *Filter) checkMatch(side string, current, reported *tensor.Infos) error {
	if current.NumTensors > 0 && !current.Equal(reported) {
		table, _ := tensor.Compare(current, reported)
		f.logger().Warnf("%s tensors do not match the model:\n%s", side, table)
		return fmt.Errorf("%w: %s tensors do not match the model", ErrConfigurationRejected, side)
	}

	return nil
}

// AllocateInInvoke reports whether the backend allocates output buffers itself.
func (f *Filter) AllocateInInvoke() bool {
	if f.desc == nil {
		return false
	}

	if f.desc.ABI() == subplugin.V1 {
		return f.info.AllocateInInvoke
	}

	fw := f.desc.Legacy()
	if !fw.AllocateInInvoke {
		return false
	}

	if fw.CheckAllocateInInvoke != nil {
		return fw.CheckAllocateInInvoke(&f.priv) == nil
	}

	return true
}

// Invoke runs the opened backend on input, filling output.
func (f *Filter) Invoke(input, output []tensor.Memory) error {
	if !f.prop.FrameworkOpened {
		return ErrNotOpened
	}

	var invoke subplugin.InvokeFunc
	switch f.desc.ABI() {
	case subplugin.V0:
		invoke = f.desc.Legacy().Invoke
	case subplugin.V1:
		invoke = f.desc.Framework().Invoke
	}

	if err := invoke(&f.prop, &f.priv, input, output); err != nil {
		return fmt.Errorf("failed to invoke framework %s: %w", f.prop.FrameworkName, err)
	}

	return nil
}
