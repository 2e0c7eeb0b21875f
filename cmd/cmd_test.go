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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpack/tensorfilter/pkg/subplugin"
)

func TestRunSubPlugins(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runSubPlugins(&buf, subplugin.Default()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, []string{"NAME", "ABI", "ACCELERATORS", "IN-PLACE", "WITHOUT-MODEL"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"echo", "v0", "-", "false", "true"}, strings.Fields(findLine(lines, "echo")))
	assert.Equal(t, []string{"passthrough", "v1", "cpu,cpu.neon,gpu", "true", "true"}, strings.Fields(findLine(lines, "passthrough")))
}

func findLine(lines []string, name string) string {
	for _, line := range lines {
		if strings.HasPrefix(line, name+" ") {
			return line
		}
	}

	return ""
}

func TestRunAccelerator(t *testing.T) {
	testCases := []struct {
		name       string
		opts       acceleratorOptions
		preference string
		expected   string
		expectErr  bool
	}{
		{name: "framework", opts: acceleratorOptions{framework: "passthrough"}, preference: "true:gpu,cpu", expected: "gpu,cpu"},
		{name: "disabled", opts: acceleratorOptions{framework: "passthrough"}, preference: "false:gpu", expected: "none"},
		{name: "supported", opts: acceleratorOptions{supported: []string{"npu", "npu.edgetpu"}}, preference: "true:npu.edgetpu", expected: "npu.edgetpu"},
		{name: "no match", opts: acceleratorOptions{supported: []string{"cpu"}}, preference: "true:gpu", expected: "auto"},
		{name: "unknown framework", opts: acceleratorOptions{framework: "missing"}, preference: "true", expectErr: true},
		{name: "nothing to resolve against", preference: "true", expectErr: true},
		{name: "unknown supported", opts: acceleratorOptions{supported: []string{"fpga"}}, preference: "true", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			acceleratorOpts = tc.opts
			t.Cleanup(func() { acceleratorOpts = acceleratorOptions{} })

			var buf bytes.Buffer
			err := runAccelerator(&buf, subplugin.Default(), tc.preference)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, strings.TrimSpace(buf.String()))
		})
	}
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runVersion(&buf))
	assert.Contains(t, buf.String(), "Version:")
	assert.Contains(t, buf.String(), "Platform:")
}
