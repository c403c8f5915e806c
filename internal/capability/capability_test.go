// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package capability

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveProbesOnce(t *testing.T) {
	c := New()
	var calls int32

	probe := func(name string) bool {
		atomic.AddInt32(&calls, 1)
		return name == "flvtool2"
	}

	assert.True(t, c.Resolve("flvtool2", probe))
	assert.True(t, c.Resolve("flvtool2", probe))
	assert.False(t, c.Resolve("yamdi", probe))
	assert.False(t, c.Resolve("yamdi", probe))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	available, known := c.Get("flvtool2")
	assert.True(t, known)
	assert.True(t, available)

	_, known = c.Get("other")
	assert.False(t, known)
}

func TestResolveConcurrentFirstQueries(t *testing.T) {
	c := New()
	var calls int32
	release := make(chan struct{})

	probe := func(name string) bool {
		atomic.AddInt32(&calls, 1)
		<-release
		return true
	}

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Resolve("flvtool2", probe)
		}(i)
	}

	// let the callers pile up on the in-flight probe
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.True(t, r)
	}
}

func TestSetFirstValueWins(t *testing.T) {
	c := New()
	assert.False(t, c.Set("flvtool2", false))
	assert.False(t, c.Set("flvtool2", true))
	assert.False(t, c.Resolve("flvtool2", func(string) bool { return true }))
}

func TestLookPath(t *testing.T) {
	assert.True(t, LookPath("sh"))
	assert.False(t, LookPath("surely-not-an-installed-tool-4711"))
}
