// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package parse

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerFiresObservers(t *testing.T) {
	var progress []Progress
	var codecs []Codecs

	tr := NewTracker(Config{
		DurationSeconds: 180,
		OnProgress:      func(p Progress) { progress = append(progress, p) },
		OnCodecData:     func(c Codecs) { codecs = append(codecs, c) },
	})

	acc := header
	tr.Parse(acc)
	assert.Empty(t, progress)
	require.Len(t, codecs, 1)

	acc += "frame=  750 fps= 75 q=31.0 size=    3000kB time=00:00:30.00 bitrate= 819.2kbits/s\r"
	tr.Parse(acc)
	acc += "frame= 2250 fps= 75 q=31.0 size=   10240kB time=00:01:30.00 bitrate= 932.1kbits/s\r"
	tr.Parse(acc)

	assert.Len(t, codecs, 1, "codec observer fires at most once")
	require.Len(t, progress, 2)
	assert.InDelta(t, 50.0, *progress[1].Percent, 1e-9)

	latest, ok := tr.Progress()
	require.True(t, ok)
	assert.Equal(t, "00:01:30.00", latest.Timemark)

	c, ok := tr.Codecs()
	require.True(t, ok)
	assert.Equal(t, codecs[0], c)
}

func TestTrackerWithoutObservers(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Parse(header)

	_, ok := tr.Progress()
	assert.False(t, ok)
	_, ok = tr.Codecs()
	assert.True(t, ok)
}

func TestTrackerLog(t *testing.T) {
	tr := NewTracker(Config{LogLines: 3})

	tr.Parse("first\nsec")
	tr.Parse("first\nsecond\nthird\r")

	lines := tr.Log()
	require.Len(t, lines, 2, "a trailing carriage return is held back")
	assert.Equal(t, "first", lines[0].Data)
	assert.Equal(t, "second", lines[1].Data)

	tr.Parse("first\nsecond\nthird\r\nfourth\n\nfifth\n")
	lines = tr.Log()
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"third", "fourth", "fifth"}, []string{lines[0].Data, lines[1].Data, lines[2].Data})
}

func TestTrackerLongRun(t *testing.T) {
	const lines = 14400

	calls := 0
	tr := NewTracker(Config{
		DurationSeconds: lines,
		OnProgress:      func(Progress) { calls++ },
	})

	var acc strings.Builder
	acc.WriteString(header)
	started := time.Now()
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&acc, "frame=%5d fps= 25 q=28.0 size=%8dkB time=%02d:%02d:%02d.00 bitrate= 800.0kbits/s speed=1x\r",
			i*25, i*100, i/3600, i/60%60, i%60)
		tr.Parse(acc.String())
	}
	assert.Less(t, time.Since(started), 5*time.Second)

	assert.Equal(t, lines, calls)
	p, ok := tr.Progress()
	require.True(t, ok)
	assert.Equal(t, "04:00:00.00", p.Timemark)
	assert.InDelta(t, 100.0, *p.Percent, 1e-9)
	assert.Len(t, tr.Log(), 100)
}
