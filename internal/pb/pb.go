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

package pb

import (
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	humanize "github.com/dustin/go-humanize"
	mpbv8 "github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var disableProgress atomic.Bool

// SetDisableProgress turns progress rendering off for every bar created later.
func SetDisableProgress(disable bool) {
	disableProgress.Store(disable)
}

// Tracker shows per model file progress while it is read.
type Tracker interface {
	// Track wraps reader so that reading it advances the bar of path.
	Track(path string, size int64, reader io.Reader) io.Reader

	// Done marks the bar of path as finished with msg.
	Done(path, msg string)

	// Wait blocks until every bar is rendered.
	Wait()
}

// ProgressBar renders one bar per model file.
type ProgressBar struct {
	mu   sync.Mutex
	mpb  *mpbv8.Progress
	bars map[string]*bar
}

type bar struct {
	*mpbv8.Bar
	size int64
	msg  atomic.Pointer[string]
}

// NewProgressBar creates the progress bar writing to out. When progress is
// disabled the bars are rendered to io.Discard.
func NewProgressBar(out io.Writer) *ProgressBar {
	if disableProgress.Load() {
		out = io.Discard
	}

	return &ProgressBar{
		mpb:  mpbv8.New(mpbv8.WithWidth(50), mpbv8.WithOutput(out)),
		bars: make(map[string]*bar),
	}
}

func (p *ProgressBar) Track(path string, size int64, reader io.Reader) io.Reader {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.bars[path]; ok {
		return reader
	}

	b := &bar{size: size}
	name := filepath.Base(path)
	b.Bar = p.mpb.New(size,
		mpbv8.BarStyle(),
		mpbv8.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				if msg := b.msg.Load(); msg != nil {
					return *msg
				}

				return "hashing " + name
			}, decor.WCSyncSpaceR),
		),
		mpbv8.AppendDecorators(
			decor.OnComplete(decor.Counters(decor.SizeB1024(0), "% .2f / % .2f"), humanize.IBytes(uint64(size))),
		),
	)
	p.bars[path] = b

	return b.ProxyReader(reader)
}

func (p *ProgressBar) Done(path, msg string) {
	p.mu.Lock()
	b, ok := p.bars[path]
	p.mu.Unlock()

	if !ok {
		return
	}

	b.msg.Store(&msg)
	b.SetCurrent(b.size)
}

func (p *ProgressBar) Wait() {
	p.mu.Lock()
	for _, b := range p.bars {
		// Bars of failed files never complete on their own.
		if !b.Completed() {
			b.Abort(false)
		}
	}
	p.mu.Unlock()

	p.mpb.Wait()
}
