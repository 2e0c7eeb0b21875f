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

import "errors"

var (
	// ErrConfigurationRejected is returned when a change is not allowed in
	// the current state. The configuration is left unchanged.
	ErrConfigurationRejected = errors.New("configuration rejected")

	// ErrBackendUnavailable is returned when the named framework cannot be bound.
	ErrBackendUnavailable = errors.New("framework unavailable")

	// ErrOpenPrecondition is returned when the framework cannot be opened
	// with the current configuration.
	ErrOpenPrecondition = errors.New("open precondition not met")

	// ErrReloadFailed is returned when the backend refused a runtime change.
	// The configuration is rolled back.
	ErrReloadFailed = errors.New("reload failed")

	// ErrNotOpened is returned by operations that need an opened framework.
	ErrNotOpened = errors.New("framework not opened")

	// ErrUnknownProperty is returned for property names the filter does not know.
	ErrUnknownProperty = errors.New("unknown property")
)
