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
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	// defaultDir is the directory under the user home holding logs and caches.
	defaultDir = ".tensorfilter"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// Root is the configuration shared by every command.
type Root struct {
	LogDir          string
	LogLevel        string
	CacheDir        string
	DisableProgress bool
}

// NewRoot creates the root configuration with its defaults under the user home.
func NewRoot() (*Root, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	return &Root{
		LogDir:   filepath.Join(home, defaultDir, "logs"),
		LogLevel: DefaultLogLevel,
		CacheDir: filepath.Join(home, defaultDir, "cache"),
	}, nil
}

// Validate checks the root configuration.
func (r *Root) Validate() error {
	if len(r.LogDir) == 0 {
		return fmt.Errorf("log directory is required")
	}

	if _, err := logrus.ParseLevel(r.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", r.LogLevel, err)
	}

	return nil
}
