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
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modelpack/tensorfilter/pkg/accelerator"
	"github.com/modelpack/tensorfilter/pkg/subplugin"
)

type acceleratorOptions struct {
	framework string
	supported []string
}

var acceleratorOpts = acceleratorOptions{}

// acceleratorCmd represents the tensorfilter command for resolving an accelerator preference.
var acceleratorCmd = &cobra.Command{
	Use:                "accelerator [flags] <preference>",
	Short:              "Resolve an accelerator preference such as \"true:gpu,cpu\"",
	Args:               cobra.ExactArgs(1),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccelerator(cmd.OutOrStdout(), subplugin.Default(), args[0])
	},
}

func init() {
	flags := acceleratorCmd.Flags()
	flags.StringVar(&acceleratorOpts.framework, "framework", "", "resolve against the accelerators of this sub-plugin")
	flags.StringSliceVar(&acceleratorOpts.supported, "supported", nil, "resolve against these accelerator names")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind accelerator flags to viper: %w", err))
	}
}

func runAccelerator(w io.Writer, registry *subplugin.Registry, preference string) error {
	supported := acceleratorOpts.supported
	if acceleratorOpts.framework != "" {
		d, ok := registry.Find(acceleratorOpts.framework)
		if !ok {
			return fmt.Errorf("sub-plugin %s is not registered", acceleratorOpts.framework)
		}

		info, err := describe(d)
		if err != nil {
			return err
		}

		supported = info.AcceleratorNames()
	}

	if len(supported) == 0 {
		return fmt.Errorf("either --framework or --supported is required")
	}

	for _, name := range supported {
		if _, ok := accelerator.Parse(name); !ok {
			return fmt.Errorf("unknown accelerator %q", name)
		}
	}

	resolved := accelerator.Dedup(accelerator.Resolve(&preference, supported))
	fmt.Fprintln(w, accelerator.Join(resolved))
	return nil
}
