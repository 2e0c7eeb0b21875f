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

package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	retry "github.com/avast/retry-go/v4"
	godigest "github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpack/tensorfilter/pkg/config"
	"github.com/modelpack/tensorfilter/pkg/filter"
	"github.com/modelpack/tensorfilter/pkg/modelinfo"
	"github.com/modelpack/tensorfilter/pkg/subplugin"
	"github.com/modelpack/tensorfilter/pkg/tensor"
)

// flaky fails to open until failures reaches zero.
type flaky struct {
	failures int
	opens    int
	closes   int
}

func (b *flaky) registry(t *testing.T) *subplugin.Registry {
	r := subplugin.NewRegistry()
	require.NoError(t, r.Register(subplugin.NewLegacy(&subplugin.LegacyFramework{
		Name:            "flaky",
		VerifyModelPath: true,
		Invoke: func(*subplugin.Properties, *any, []tensor.Memory, []tensor.Memory) error {
			return nil
		},
		SetInputDimension: func(_ *subplugin.Properties, _ *any, in, out *tensor.Infos) error {
			*out = *in
			return nil
		},
		Open: func(*subplugin.Properties, *any) error {
			b.opens++
			if b.failures > 0 {
				b.failures--
				return errors.New("device busy")
			}

			return nil
		},
		Close: func(*subplugin.Properties, *any) {
			b.closes++
		},
	})))

	return r
}

func newConfig(t *testing.T) *config.Filter {
	model := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0644))

	cfg := config.NewFilter()
	cfg.Framework = "flaky"
	cfg.Models = []string{model}
	cfg.Input.Dimensions = "3:4"
	cfg.Input.Types = "uint8"
	cfg.Custom = "mode:fast"
	return cfg
}

var noDelay = WithRetryOptions(retry.Delay(0), retry.DelayType(retry.FixedDelay))

func TestRun(t *testing.T) {
	b := &flaky{failures: 2}
	cfg := newConfig(t)

	report, err := Run(context.Background(), cfg,
		WithFilterOptions(filter.WithRegistry(b.registry(t))),
		WithOpenAttempts(3), noDelay,
		WithModelInfo(modelinfo.WithDigest()))
	require.NoError(t, err)

	assert.Equal(t, 3, b.opens)
	assert.Equal(t, 1, b.closes)
	assert.Equal(t, "flaky", report.Framework)
	assert.Equal(t, "v0", report.ABI)
	assert.True(t, report.Opened)
	assert.Equal(t, "3:4", report.Properties["input"])
	assert.Equal(t, "3:4", report.Properties["output"])
	assert.Equal(t, "uint8", report.Properties["outputtype"])
	assert.Equal(t, "mode:fast", report.Properties["custom"])
	assert.NotContains(t, report.Properties, "sub-plugins")

	require.Len(t, report.Models, 1)
	assert.Equal(t, int64(7), report.Models[0].Size)
	assert.Equal(t, godigest.FromString("weights"), report.Models[0].Digest)
}

func TestRunAttemptsExhausted(t *testing.T) {
	b := &flaky{failures: 5}

	_, err := Run(context.Background(), newConfig(t),
		WithFilterOptions(filter.WithRegistry(b.registry(t))),
		WithOpenAttempts(2), noDelay)
	assert.EqualError(t, err, "failed to open framework flaky: device busy")
	assert.Equal(t, 2, b.opens)
}

func TestRunPreconditionNotRetried(t *testing.T) {
	b := &flaky{}
	cfg := newConfig(t)
	cfg.Models = []string{filepath.Join(t.TempDir(), "missing.bin")}

	_, err := Run(context.Background(), cfg,
		WithFilterOptions(filter.WithRegistry(b.registry(t))),
		WithOpenAttempts(3), noDelay)
	assert.ErrorIs(t, err, filter.ErrOpenPrecondition)
	assert.Zero(t, b.opens)
}

func TestApplyUnknownFramework(t *testing.T) {
	cfg := config.NewFilter()
	cfg.Framework = "missing"

	f := filter.New(filter.WithRegistry(subplugin.NewRegistry()))
	assert.ErrorIs(t, Apply(f, cfg), filter.ErrBackendUnavailable)
}
