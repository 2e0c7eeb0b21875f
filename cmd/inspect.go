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

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modelpack/tensorfilter/internal/cache"
	internalpb "github.com/modelpack/tensorfilter/internal/pb"
	"github.com/modelpack/tensorfilter/pkg/config"
	"github.com/modelpack/tensorfilter/pkg/filter"
	"github.com/modelpack/tensorfilter/pkg/modelinfo"
	"github.com/modelpack/tensorfilter/pkg/probe"
)

type inspectOptions struct {
	attempts    uint
	digest      bool
	xattr       bool
	concurrency int
}

var inspectOpts = inspectOptions{}

// inspectCmd represents the tensorfilter command for inspect.
var inspectCmd = &cobra.Command{
	Use:                "inspect [flags] <config>",
	Short:              "Open the filter described by a config file and print its negotiated properties",
	Args:               cobra.ExactArgs(1),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(context.Background(), args[0])
	},
}

// init initializes inspect command.
func init() {
	flags := inspectCmd.Flags()
	flags.UintVar(&inspectOpts.attempts, "open-attempts", 1, "number of times to try opening the framework")
	flags.BoolVar(&inspectOpts.digest, "digest", false, "compute the sha256 digest of every model file")
	flags.BoolVar(&inspectOpts.xattr, "xattr", false, "reuse and stamp digests in the extended attributes of model files")
	flags.IntVar(&inspectOpts.concurrency, "concurrency", 4, "number of model files hashed at once")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind inspect flags to viper: %w", err))
	}
}

// runInspect runs the inspect tensorfilter.
func runInspect(ctx context.Context, path string) error {
	cfg, err := config.LoadFilter(path)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.ExpandModels(filepath.Dir(path)); err != nil {
		return err
	}

	opts := []probe.Option{
		probe.WithOpenAttempts(inspectOpts.attempts),
		probe.WithFilterOptions(filter.WithLogger(logrus.WithField("config", path))),
	}

	var tracker *internalpb.ProgressBar
	if inspectOpts.digest {
		digests, err := cache.New(rootConfig.CacheDir, 0)
		if err != nil {
			return fmt.Errorf("failed to open digest cache: %w", err)
		}

		tracker = internalpb.NewProgressBar(os.Stderr)

		infoOpts := []modelinfo.Option{
			modelinfo.WithDigest(),
			modelinfo.WithConcurrency(inspectOpts.concurrency),
			modelinfo.WithCache(digests),
			modelinfo.WithTracker(tracker),
		}
		if inspectOpts.xattr {
			infoOpts = append(infoOpts, modelinfo.WithXattr())
		}

		opts = append(opts, probe.WithModelInfo(infoOpts...))
	}

	report, err := probe.Run(ctx, cfg, opts...)
	if tracker != nil {
		tracker.Wait()
	}

	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "	")
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}
