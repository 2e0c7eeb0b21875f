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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modelpack/tensorfilter/pkg/subplugin"
)

// subpluginsCmd represents the tensorfilter command for listing sub-plugins.
var subpluginsCmd = &cobra.Command{
	Use:                "subplugins",
	Aliases:            []string{"ls"},
	Short:              "List the registered tensor filter sub-plugins",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubPlugins(cmd.OutOrStdout(), subplugin.Default())
	},
}

// describe returns the static information of a sub-plugin without opening it.
func describe(d *subplugin.Descriptor) (subplugin.FrameworkInfo, error) {
	if d.ABI() == subplugin.V0 {
		fw := d.Legacy()
		return subplugin.FrameworkInfo{
			Name:             fw.Name,
			AllowInPlace:     fw.AllowInPlace,
			AllocateInInvoke: fw.AllocateInInvoke,
			RunWithoutModel:  fw.RunWithoutModel,
			VerifyModelPath:  fw.VerifyModelPath,
		}, nil
	}

	var info subplugin.FrameworkInfo
	if err := d.Framework().GetFrameworkInfo(&subplugin.Properties{}, nil, &info); err != nil {
		return info, err
	}

	return info, nil
}

func runSubPlugins(w io.Writer, registry *subplugin.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 4, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "NAME\tABI\tACCELERATORS\tIN-PLACE\tWITHOUT-MODEL")

	for _, name := range registry.Names() {
		d, ok := registry.Find(name)
		if !ok {
			continue
		}

		info, err := describe(d)
		if err != nil {
			return fmt.Errorf("failed to describe sub-plugin %s: %w", name, err)
		}

		accls := strings.Join(info.AcceleratorNames(), ",")
		if accls == "" {
			accls = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\n", name, d.ABI(), accls, info.AllowInPlace, info.RunWithoutModel)
	}

	return nil
}
