// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/mediaproc/internal/probe"
)

type warnLogger struct {
	warnings []string
}

func (l *warnLogger) Info(format string, args ...interface{})  {}
func (l *warnLogger) Error(format string, args ...interface{}) {}
func (l *warnLogger) Debug(format string, args ...interface{}) {}
func (l *warnLogger) Warn(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func inputFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.avi")
	require.NoError(t, os.WriteFile(path, []byte("not really a movie"), 0o644))
	return path
}

func meta(version string) probe.Metadata {
	return probe.Metadata{DurationSeconds: 100, Version: version}
}

func indexOf(args []string, flag string) int {
	for i, a := range args {
		if a == flag {
			return i
		}
	}
	return -1
}

func TestBuildArgsOrder(t *testing.T) {
	in := inputFile(t)
	o := &Options{
		InputFile:  in,
		OutputFile: "/tmp/out.flv",
		StartTime:  "00:00:10",
		Duration:   "30",
		Format:     "flv",
		Video: VideoOptions{
			Bitrate:  800,
			Codec:    "libx264",
			FPS:      29.97,
			Aspect:   "16:9",
			Pad:      &Pad{W: 640, H: 480, X: 0, Y: 60},
			PadColor: "white",
			Size:     "640x360",
		},
		Audio: AudioOptions{
			Bitrate:   128,
			Channels:  2,
			Codec:     "aac",
			Frequency: 44100,
		},
		Additional: []string{"-threads", "2"},
	}

	args, err := BuildArgs(o, meta("4.4.2"), false, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-ss", "00:00:10",
		"-i", in,
		"-t", "30",
		"-f", "flv",
		"-b", "800k",
		"-vcodec", "libx264",
		"-r", "29.97",
		"-aspect", "16:9",
		"-ab", "128k",
		"-ac", "2",
		"-acodec", "aac",
		"-ar", "44100",
		"-threads", "2",
		"-vf", "pad=640:480:0:60:white",
		"-s", "640x360",
		"-y", "/tmp/out.flv",
	}, args)
}

func TestBuildArgsVideoSkipExcludesVideoOptions(t *testing.T) {
	o := &Options{
		InputFile:  inputFile(t),
		OutputFile: "out.mp3",
		Video: VideoOptions{
			Skip:    true,
			Bitrate: 500,
			Codec:   "libx264",
			FPS:     25,
			Pad:     &Pad{W: 10, H: 10},
			Size:    "320x240",
		},
	}

	args, err := BuildArgs(o, meta("0.5"), false, nil)
	require.NoError(t, err, "pad is ignored, so the old version must not matter")

	assert.Contains(t, args, "-vn")
	for _, flag := range []string{"-vcodec", "-b", "-r", "-vf", "-s"} {
		assert.NotContains(t, args, flag)
	}
}

func TestBuildArgsAudioSkipExcludesAudioOptions(t *testing.T) {
	o := &Options{
		InputFile:  inputFile(t),
		OutputFile: "out.mp4",
		Audio:      AudioOptions{Skip: true, Bitrate: 128, Channels: 2, Codec: "aac", Frequency: 48000},
	}

	args, err := BuildArgs(o, meta("4.0"), false, nil)
	require.NoError(t, err)

	assert.Contains(t, args, "-an")
	for _, flag := range []string{"-ab", "-ac", "-acodec", "-ar"} {
		assert.NotContains(t, args, flag)
	}
}

func TestBuildArgsConstantBitrate(t *testing.T) {
	o := &Options{
		InputFile:  inputFile(t),
		OutputFile: "out.mp4",
		Video:      VideoOptions{Bitrate: 1024, ConstantBitrate: true},
	}

	args, err := BuildArgs(o, meta("4.0"), false, nil)
	require.NoError(t, err)

	b := indexOf(args, "-b")
	require.NotEqual(t, -1, b)
	assert.Equal(t, []string{
		"-b", "1024k",
		"-maxrate", "1024k",
		"-minrate", "1024k",
		"-bufsize", "3M",
	}, args[b:b+8])
}

func TestBuildArgsConstantBitrateNeedsBitrate(t *testing.T) {
	o := &Options{
		InputFile:  inputFile(t),
		OutputFile: "out.mp4",
		Video:      VideoOptions{ConstantBitrate: true},
	}

	args, err := BuildArgs(o, meta("4.0"), false, nil)
	require.NoError(t, err)
	assert.NotContains(t, args, "-maxrate")
}

func TestBuildArgsPaddingVersionGate(t *testing.T) {
	newOptions := func() *Options {
		return &Options{
			InputFile:  inputFile(t),
			OutputFile: "out.mp4",
			Video:      VideoOptions{Pad: &Pad{W: 1280, H: 720, X: 0, Y: 40}},
		}
	}

	_, err := BuildArgs(newOptions(), meta("0.6.1"), false, nil)
	require.ErrorIs(t, err, ErrUnsupportedOption)
	assert.Contains(t, err.Error(), "0.6.1")

	_, err = BuildArgs(newOptions(), meta(""), false, nil)
	require.ErrorIs(t, err, ErrUnsupportedOption, "unknown version")

	_, err = BuildArgs(newOptions(), meta("custom-build"), false, nil)
	require.ErrorIs(t, err, ErrUnsupportedOption)

	for _, version := range []string{"0.7", "0.7.0", "0.10.2", "4.4.2", "N-113245-g1234abcd"} {
		args, err := BuildArgs(newOptions(), meta(version), false, nil)
		require.NoError(t, err, version)
		vf := indexOf(args, "-vf")
		require.NotEqual(t, -1, vf, version)

		filter := args[vf+1]
		require.True(t, strings.HasPrefix(filter, "pad="))
		assert.Equal(t, []string{"1280", "720", "0", "40", "black"}, strings.Split(strings.TrimPrefix(filter, "pad="), ":"))
	}
}

func TestBuildArgsURIInput(t *testing.T) {
	o := &Options{InputFile: "http://example.com/my movie.mp4", OutputFile: "out.mp4"}

	args, err := BuildArgs(o, meta("4.0"), false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "http://example.com/my%20movie.mp4", "-y", "out.mp4"}, args)
}

func TestBuildArgsStreamInput(t *testing.T) {
	o := &Options{InputFile: "ignored.mp4", InputStream: strings.NewReader("data"), OutputFile: "out.mp4"}

	args, err := BuildArgs(o, meta("4.0"), false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "-", "-y", "out.mp4"}, args)
}

func TestBuildArgsInputNotReadable(t *testing.T) {
	_, err := BuildArgs(&Options{InputFile: filepath.Join(t.TempDir(), "missing.avi")}, meta("4.0"), true, nil)
	assert.ErrorIs(t, err, ErrInputNotReadable)

	_, err = BuildArgs(&Options{InputFile: t.TempDir()}, meta("4.0"), true, nil)
	assert.ErrorIs(t, err, ErrInputNotReadable)
}

func TestBuildArgsNoInput(t *testing.T) {
	_, err := BuildArgs(&Options{OutputFile: "out.mp4"}, meta("4.0"), false, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBuildArgsOutputEscapesSpaces(t *testing.T) {
	o := &Options{InputFile: inputFile(t), OutputFile: "/tmp/my new movie.mp4"}

	args, err := BuildArgs(o, meta("4.0"), false, nil)
	require.NoError(t, err)
	assert.Equal(t, `/tmp/my\ new\ movie.mp4`, args[len(args)-1])
}

func TestBuildArgsMissingOutputWarns(t *testing.T) {
	log := &warnLogger{}
	o := &Options{InputFile: inputFile(t)}

	args, err := BuildArgs(o, meta("4.0"), false, log)
	require.NoError(t, err)
	assert.NotContains(t, args, "-y")
	assert.Equal(t, []string{"no outputfile specified"}, log.warnings)

	log.warnings = nil
	_, err = BuildArgs(o, meta("4.0"), true, log)
	require.NoError(t, err)
	assert.Empty(t, log.warnings)
}

func TestBuildArgsRejectsInvalidOptions(t *testing.T) {
	o := &Options{InputFile: inputFile(t), OutputFile: "out.mp4", Video: VideoOptions{Bitrate: -1}}
	_, err := BuildArgs(o, meta("4.0"), false, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestScreenshotArgs(t *testing.T) {
	assert.Equal(t, []string{
		"-ss", "33.5",
		"-i", "movie.mp4",
		"-vcodec", "mjpeg",
		"-vframes", "1",
		"-an",
		"-f", "rawvideo",
		"-s", "320x240",
		"-y", "shots/tn_33.5s.jpg",
	}, ScreenshotArgs("movie.mp4", 33.5, "320x240", "shots/tn_33.5s.jpg"))
}

func TestCheckInput(t *testing.T) {
	assert.NoError(t, CheckInput(&Options{InputFile: inputFile(t)}))
	assert.NoError(t, CheckInput(&Options{InputFile: "rtmp://live/stream"}))
	assert.ErrorIs(t, CheckInput(&Options{InputFile: "/does/not/exist.avi"}), ErrInputNotReadable)
	assert.ErrorIs(t, CheckInput(&Options{}), ErrConfiguration)
}
