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

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultTTL is how long a digest stays valid.
	DefaultTTL = 7 * 24 * time.Hour

	// lockRetryDelay is the delay between attempts to take the file lock.
	lockRetryDelay = 50 * time.Millisecond

	fileName = "digests.json"
)

// ErrNotFound is returned when no valid entry exists for a model file.
var ErrNotFound = errors.New("digest not cached")

// Digests caches model file digests across processes.
type Digests interface {
	// Lookup returns the entry of path if the file is unchanged since it was stored.
	Lookup(ctx context.Context, path string, fi os.FileInfo) (*Entry, error)

	// Store records the entry, dropping expired ones.
	Store(ctx context.Context, entry *Entry) error
}

// Entry is the digest of a model file at a given size and modification time.
type Entry struct {
	Path     string    `json:"path"`
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
	Digest   string    `json:"digest"`
	StoredAt time.Time `json:"stored_at"`
}

// matches reports whether the entry still describes the file.
func (e *Entry) matches(fi os.FileInfo) bool {
	return e.Size == fi.Size() && e.ModTime.Equal(fi.ModTime())
}

type digests struct {
	// flock does not exclude goroutines sharing one handle, mu does.
	mu   sync.Mutex
	path string
	ttl  time.Duration
	lock *flock.Flock
}

// New opens the digest cache stored in dir. A non-positive ttl uses DefaultTTL.
func New(dir string, ttl time.Duration) (Digests, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	path := filepath.Join(dir, fileName)
	return &digests{
		path: path,
		ttl:  ttl,
		lock: flock.New(path + ".lock"),
	}, nil
}

// load reads the entries. The caller holds the lock.
func (d *digests) load() (map[string]*Entry, error) {
	entries := map[string]*Entry{}

	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}

	var list []*Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	for _, e := range list {
		entries[e.Path] = e
	}

	return entries, nil
}

// save writes the entries, dropping expired ones. The caller holds the lock.
func (d *digests) save(entries map[string]*Entry) error {
	list := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if time.Since(e.StoredAt) <= d.ttl {
			list = append(list, e)
		}
	}

	data, err := json.Marshal(list)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), fileName+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), d.path)
}

func (d *digests) Lookup(ctx context.Context, path string, fi os.FileInfo) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, err
	}
	defer d.lock.Unlock()

	entries, err := d.load()
	if err != nil {
		return nil, err
	}

	e, ok := entries[path]
	if !ok || time.Since(e.StoredAt) > d.ttl || !e.matches(fi) {
		return nil, ErrNotFound
	}

	return e, nil
}

func (d *digests) Store(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return err
	}
	defer d.lock.Unlock()

	entries, err := d.load()
	if err != nil {
		return err
	}

	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}
	entries[entry.Path] = entry

	return d.save(entries)
}
