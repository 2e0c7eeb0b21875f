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

package xattr

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	// Prefix is required by Linux for user-space attributes.
	Prefix = "user."

	keyMtime  = "tensorfilter.mtime"
	keySize   = "tensorfilter.size"
	keySha256 = "tensorfilter.sha256"
)

// ErrStale is returned when the stamped digest no longer describes the file.
var ErrStale = errors.New("stamped digest is stale")

// Get retrieves the value of key.
func Get(path, key string) ([]byte, error) {
	sz, err := unix.Getxattr(path, key, nil)
	if err != nil {
		return nil, err
	}

	value := make([]byte, sz)
	sz, err = unix.Getxattr(path, key, value)
	if err != nil {
		return nil, err
	}

	return value[:sz], nil
}

// Set sets the value of key.
func Set(path, key string, value []byte) error {
	return unix.Setxattr(path, key, value, 0)
}

// MakeKey creates a fully-qualified key with the user prefix.
func MakeKey(parts ...string) string {
	return Prefix + strings.Join(parts, ".")
}

// LoadDigest returns the digest stamped on the model file by StoreDigest,
// provided its size and modification time are unchanged.
func LoadDigest(path string, fi os.FileInfo) (string, error) {
	mtime, err := Get(path, MakeKey(keyMtime))
	if err != nil {
		return "", err
	}

	size, err := Get(path, MakeKey(keySize))
	if err != nil {
		return "", err
	}

	if string(mtime) != strconv.FormatInt(fi.ModTime().UnixNano(), 10) ||
		string(size) != strconv.FormatInt(fi.Size(), 10) {
		return "", ErrStale
	}

	digest, err := Get(path, MakeKey(keySha256))
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// StoreDigest stamps the digest on the model file together with the size
// and modification time it was computed for.
func StoreDigest(path string, fi os.FileInfo, digest string) error {
	if err := Set(path, MakeKey(keySha256), []byte(digest)); err != nil {
		return err
	}

	if err := Set(path, MakeKey(keySize), []byte(strconv.FormatInt(fi.Size(), 10))); err != nil {
		return err
	}

	return Set(path, MakeKey(keyMtime), []byte(strconv.FormatInt(fi.ModTime().UnixNano(), 10)))
}
