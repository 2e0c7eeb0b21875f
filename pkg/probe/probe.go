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
	"fmt"

	retry "github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"github.com/modelpack/tensorfilter/pkg/config"
	"github.com/modelpack/tensorfilter/pkg/filter"
	"github.com/modelpack/tensorfilter/pkg/modelinfo"
)

// Report is what a probe learned about a configured filter.
type Report struct {
	Framework  string            `json:"framework"`
	ABI        string            `json:"abi"`
	Opened     bool              `json:"opened"`
	Properties map[string]string `json:"properties"`
	Models     []modelinfo.File  `json:"models,omitempty"`
}

type options struct {
	attempts  uint
	retryOpts []retry.Option
	inspect   []modelinfo.Option
	filter    []filter.Option
}

// Option configures Run.
type Option func(*options)

// WithOpenAttempts sets how many times opening the framework is tried.
func WithOpenAttempts(n uint) Option {
	return func(o *options) {
		o.attempts = n
	}
}

// WithRetryOptions overrides the delays between open attempts.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *options) {
		o.retryOpts = opts
	}
}

// WithModelInfo passes options to the model file inspection.
func WithModelInfo(opts ...modelinfo.Option) Option {
	return func(o *options) {
		o.inspect = append(o.inspect, opts...)
	}
}

// WithFilterOptions passes options to the filter being probed.
func WithFilterOptions(opts ...filter.Option) Option {
	return func(o *options) {
		o.filter = append(o.filter, opts...)
	}
}

// Apply sets every configured property on f in order.
func Apply(f *filter.Filter, cfg *config.Filter) error {
	for _, s := range cfg.Settings() {
		if err := f.SetProperty(s.Name, s.Value); err != nil {
			return fmt.Errorf("failed to set %s=%q: %w", s.Name, s.Value, err)
		}
	}

	return nil
}

// Run builds a filter from cfg, opens it, negotiates its tensors and reports
// the resulting properties. The filter is closed before returning.
func Run(ctx context.Context, cfg *config.Filter, opts ...Option) (*Report, error) {
	o := &options{attempts: 1, retryOpts: defaultRetryOpts}
	for _, opt := range opts {
		opt(o)
	}

	f := filter.New(o.filter...)
	defer f.Close()

	if err := Apply(f, cfg); err != nil {
		return nil, err
	}

	if err := retry.Do(f.Open, append(o.retryOpts,
		retry.Attempts(max(o.attempts, 1)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		// Missing models or frameworks do not fix themselves.
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, filter.ErrOpenPrecondition)
		}),
		retry.OnRetry(func(n uint, err error) {
			logrus.Warnf("probe: open of %s failed, attempt %d: %s", cfg.Framework, n+1, err)
		}),
	)...); err != nil {
		return nil, err
	}

	if err := f.ConfigureTensors(); err != nil {
		return nil, err
	}

	report := &Report{
		Framework:  f.Framework(),
		Opened:     f.IsOpened(),
		Properties: make(map[string]string),
	}

	if abi, ok := f.ABI(); ok {
		report.ABI = abi.String()
	}

	for _, p := range filter.AllProperties() {
		if p == filter.PropSubPlugins {
			continue
		}

		value, err := f.Get(p)
		if err != nil {
			return nil, err
		}

		report.Properties[p.String()] = value
	}

	if files := f.ModelFiles(); len(files) > 0 {
		models, err := modelinfo.Inspect(ctx, files, o.inspect...)
		if err != nil {
			return nil, err
		}

		report.Models = models
	}

	return report, nil
}
