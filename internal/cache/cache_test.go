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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigests(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	model := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0644))
	fi, err := os.Stat(model)
	require.NoError(t, err)

	c, err := New(filepath.Join(dir, "cache"), 0)
	require.NoError(t, err)

	_, err = c.Lookup(ctx, model, fi)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Store(ctx, &Entry{Path: model, ModTime: fi.ModTime(), Size: fi.Size(), Digest: "sha256:abc"}))

	e, err := c.Lookup(ctx, model, fi)
	require.NoError(t, err)
	assert.Equal(t, "sha256:abc", e.Digest)
	assert.False(t, e.StoredAt.IsZero())

	// A modified file invalidates the entry.
	require.NoError(t, os.WriteFile(model, []byte("new weights"), 0644))
	fi, err = os.Stat(model)
	require.NoError(t, err)

	_, err = c.Lookup(ctx, model, fi)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDigestsExpire(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	model := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0644))
	fi, err := os.Stat(model)
	require.NoError(t, err)

	c, err := New(dir, time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Store(ctx, &Entry{
		Path:     model,
		ModTime:  fi.ModTime(),
		Size:     fi.Size(),
		Digest:   "sha256:old",
		StoredAt: time.Now().Add(-2 * time.Hour),
	}))

	_, err = c.Lookup(ctx, model, fi)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDigestsCanceled(t *testing.T) {
	c, err := New(t.TempDir(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Store(ctx, &Entry{Path: "x"}), context.Canceled)
}

func TestDigestsConcurrentStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := New(filepath.Join(dir, "cache"), 0)
	require.NoError(t, err)

	model := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0644))
	fi, err := os.Stat(model)
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Store(ctx, &Entry{
				Path:    fmt.Sprintf("%s.%d", model, i),
				ModTime: fi.ModTime(),
				Size:    fi.Size(),
				Digest:  fmt.Sprintf("sha256:%d", i),
			})
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])

		e, err := c.Lookup(ctx, fmt.Sprintf("%s.%d", model, i), fi)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("sha256:%d", i), e.Digest)
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "cache", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
