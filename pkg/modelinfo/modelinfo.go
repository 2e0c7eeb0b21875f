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

package modelinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	humanize "github.com/dustin/go-humanize"
	sha256 "github.com/minio/sha256-simd"
	godigest "github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/modelpack/tensorfilter/internal/cache"
	"github.com/modelpack/tensorfilter/internal/pb"
	"github.com/modelpack/tensorfilter/pkg/xattr"
)

// File describes one model file of a filter.
type File struct {
	Path   string          `json:"path"`
	Size   int64           `json:"size"`
	Human  string          `json:"human_size"`
	Digest godigest.Digest `json:"digest,omitempty"`
}

type options struct {
	digest      bool
	xattr       bool
	concurrency int
	cache       cache.Digests
	tracker     pb.Tracker
}

// Option configures Inspect.
type Option func(*options)

// WithDigest enables hashing of the model files.
func WithDigest() Option {
	return func(o *options) {
		o.digest = true
	}
}

// WithXattr reuses and stamps digests in the extended attributes of the
// model files. Filesystems without xattr support fall back to hashing.
func WithXattr() Option {
	return func(o *options) {
		o.xattr = true
	}
}

// WithConcurrency sets how many files are hashed at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithCache reuses digests of unchanged files.
func WithCache(c cache.Digests) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithTracker reports hashing progress.
func WithTracker(t pb.Tracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}

// Inspect stats the model files and, when asked, computes their sha256
// digests. The result keeps the order of paths.
func Inspect(ctx context.Context, paths []string, opts ...Option) ([]File, error) {
	o := &options{concurrency: 1}
	for _, opt := range opts {
		opt(o)
	}

	files := make([]File, len(paths))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(o.concurrency, 1))

	for i, path := range paths {
		eg.Go(func() error {
			fi, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to stat model %s: %w", path, err)
			}

			files[i] = File{
				Path:  path,
				Size:  fi.Size(),
				Human: humanize.IBytes(uint64(fi.Size())),
			}

			if !o.digest || fi.IsDir() {
				return nil
			}

			dgst, err := digestOf(ctx, o, path, fi)
			if err != nil {
				return err
			}

			files[i].Digest = dgst
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

func digestOf(ctx context.Context, o *options, path string, fi os.FileInfo) (godigest.Digest, error) {
	if o.xattr {
		if stamped, err := xattr.LoadDigest(path, fi); err == nil {
			if dgst, err := godigest.Parse(stamped); err == nil {
				logrus.Debugf("modelinfo: digest of %s from xattr", path)
				return dgst, nil
			}
		}
	}

	if o.cache != nil {
		entry, err := o.cache.Lookup(ctx, path, fi)
		if err == nil {
			logrus.Debugf("modelinfo: cached digest of %s", path)
			return godigest.Digest(entry.Digest), nil
		}

		if !errors.Is(err, cache.ErrNotFound) {
			logrus.Warnf("modelinfo: failed to look up digest of %s: %s", path, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open model %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if o.tracker != nil {
		reader = o.tracker.Track(path, fi.Size(), reader)
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, &ctxReader{ctx: ctx, r: reader}); err != nil {
		return "", fmt.Errorf("failed to hash model %s: %w", path, err)
	}

	dgst := godigest.NewDigestFromBytes(godigest.SHA256, hash.Sum(nil))
	if o.tracker != nil {
		o.tracker.Done(path, "hashed "+dgst.String())
	}

	if o.xattr {
		if err := xattr.StoreDigest(path, fi, dgst.String()); err != nil {
			logrus.Debugf("modelinfo: failed to stamp digest of %s: %s", path, err)
		}
	}

	if o.cache != nil {
		if err := o.cache.Store(ctx, &cache.Entry{
			Path:    path,
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
			Digest:  dgst.String(),
		}); err != nil {
			logrus.Warnf("modelinfo: failed to cache digest of %s: %s", path, err)
		}
	}

	return dgst, nil
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
