// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720},
    {"index": 1, "codec_name": "aac", "codec_type": "audio"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "100.000000"}
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 100.0, m.DurationSeconds)
	assert.True(t, m.HasDuration())
	assert.Equal(t, "h264", m.VideoCodec)
	assert.Equal(t, "aac", m.AudioCodec)
	assert.Equal(t, 1280, m.Width)
	assert.Equal(t, 720, m.Height)
}

func TestParseStreamDurationFallback(t *testing.T) {
	m, err := Parse([]byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3","duration":"12.5"}],"format":{"duration":"N/A"}}`))
	require.NoError(t, err)
	assert.Equal(t, 12.5, m.DurationSeconds)
}

func TestParseWithoutDuration(t *testing.T) {
	m, err := Parse([]byte(`{"streams":[],"format":{}}`))
	require.NoError(t, err)
	assert.False(t, m.HasDuration())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.ErrorIs(t, err, ErrProbeFailed)
}

func fakeFFprobe(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestFFprobeProbe(t *testing.T) {
	bin := fakeFFprobe(t, "cat <<'EOF'\n"+sample+"\nEOF\n")

	m, err := NewFFprobe(bin).Probe(context.Background(), "movie.mp4")
	require.NoError(t, err)
	assert.Equal(t, 100.0, m.DurationSeconds)
}

func TestFFprobeFailure(t *testing.T) {
	bin := fakeFFprobe(t, "echo 'movie.mp4: No such file or directory' >&2\nexit 1\n")

	_, err := NewFFprobe(bin).Probe(context.Background(), "movie.mp4")
	require.ErrorIs(t, err, ErrProbeFailed)
	assert.Contains(t, err.Error(), "No such file or directory")
}

func TestFFprobeEmptyInput(t *testing.T) {
	_, err := NewFFprobe("").Probe(context.Background(), " ")
	assert.ErrorIs(t, err, ErrProbeFailed)
}
