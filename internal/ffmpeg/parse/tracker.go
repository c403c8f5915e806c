// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package parse

import (
	"container/ring"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/mediaproc/internal/process"
)

// Tracker binds the stderr of one run to its observers. It implements
// process.Parser and is not meant to be reused across runs.
type Tracker interface {
	process.Parser

	// Progress returns the latest snapshot, false if none matched yet
	Progress() (Progress, bool)
	// Codecs returns the codec summary, false if it wasn't printed yet
	Codecs() (Codecs, bool)
	// Log returns the most recent complete stderr lines
	Log() []process.Line
}

// Config for a Tracker
type Config struct {
	// DurationSeconds of the input, 0 if unknown
	DurationSeconds float64
	LogLines        int

	OnProgress  func(Progress)
	OnCodecData func(Codecs)
}

type tracker struct {
	duration   float64
	onProgress func(Progress)
	onCodecs   func(Codecs)

	log        *ring.Ring
	consumed   int
	codecsFrom int

	progress    Progress
	hasProgress bool
	codecs      Codecs
	hasCodecs   bool

	lock sync.RWMutex
}

// NewTracker creates a Tracker for a single run
func NewTracker(config Config) Tracker {
	t := &tracker{
		duration:   config.DurationSeconds,
		onProgress: config.OnProgress,
		onCodecs:   config.OnCodecData,
	}

	lines := config.LogLines
	if lines <= 0 {
		lines = 100
	}
	t.log = ring.New(lines)

	return t
}

// Parse is offered the whole stderr accumulated so far
func (t *tracker) Parse(stderr string) {
	t.lock.Lock()
	t.appendLog(stderr)

	var progressFn func(Progress)
	var codecsFn func(Codecs)

	p, ok := ParseProgress(stderr, t.duration)
	if ok {
		t.progress, t.hasProgress = p, true
		progressFn = t.onProgress
	}

	// fires once, then the observer is detached
	if !t.hasCodecs && t.summaryPrinted(stderr) {
		if c, ok := ParseCodecs(stderr); ok {
			t.codecs, t.hasCodecs = c, true
			codecsFn = t.onCodecs
			t.onCodecs = nil
		}
	}
	codecs := t.codecs
	t.lock.Unlock()

	if codecsFn != nil {
		codecsFn(codecs)
	}
	if progressFn != nil {
		progressFn(p)
	}
}

// summaryPrinted looks for the stream summary marker in the part of stderr
// not searched yet
func (t *tracker) summaryPrinted(stderr string) bool {
	if t.codecsFrom > len(stderr) {
		t.codecsFrom = 0
	}
	if strings.Contains(stderr[t.codecsFrom:], codecsReady) {
		return true
	}
	if from := len(stderr) - len(codecsReady) + 1; from > t.codecsFrom {
		t.codecsFrom = from
	}
	return false
}

// appendLog moves newly completed lines into the ring
func (t *tracker) appendLog(stderr string) {
	if t.consumed > len(stderr) {
		t.consumed = 0
	}

	now := time.Now()
	pending := stderr[t.consumed:]
	for {
		loc := reLines.FindStringIndex(pending)
		if loc == nil {
			break
		}
		// a trailing \r may still become \r\n
		if pending[loc[0]] == '\r' && loc[1] == len(pending) {
			break
		}
		if line := pending[:loc[0]]; line != "" {
			t.log.Value = process.Line{Timestamp: now, Data: line}
			t.log = t.log.Next()
		}
		t.consumed += loc[1]
		pending = pending[loc[1]:]
	}
}

func (t *tracker) Progress() (Progress, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.progress, t.hasProgress
}

func (t *tracker) Codecs() (Codecs, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.codecs, t.hasCodecs
}

func (t *tracker) Log() []process.Line {
	var out []process.Line
	t.lock.RLock()
	t.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(process.Line))
		}
	})
	t.lock.RUnlock()
	return out
}
