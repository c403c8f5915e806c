// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// Progress holds one progress line parsed from ffmpeg stderr
type Progress struct {
	Frames      uint64  `json:"frames"`
	CurrentFPS  uint64  `json:"current_fps"`
	CurrentKbps float64 `json:"current_kbps"`
	TargetSize  uint64  `json:"target_size_kb"`
	Timemark    string  `json:"timemark"`
	// Percent is nil when the input duration is unknown. It is not clamped.
	Percent *float64 `json:"percent,omitempty"`
}

// Codecs reported by ffmpeg before encoding starts
type Codecs struct {
	Audio string `json:"audio"`
	Video string `json:"video"`
}

var (
	reLines    = regexp.MustCompile(`\r\n|\r|\n`)
	reProgress = regexp.MustCompile(`frame=\s*([0-9]+)\s*fps=\s*([0-9.]+)\s*q=\s*(-?[0-9.]+)\s*(L?)size=\s*([0-9]+)[kK]i?B\s+time=(([0-9]{2}):([0-9]{2}):([0-9]{2})\.([0-9]{2}))\s+bitrate=\s*([0-9.]+)kbits`)
	reAudio    = regexp.MustCompile(`Audio: ([^,]+)`)
	reVideo    = regexp.MustCompile(`Video: ([^,]+)`)
)

const codecsReady = "Press [q] to stop"

// ParseProgress matches the last complete line of stderr against the progress
// line format. Only the tail is inspected; earlier progress lines are ignored.
func ParseProgress(stderr string, durationSec float64) (Progress, bool) {
	line, ok := lastCompleteLine(stderr)
	if !ok {
		return Progress{}, false
	}

	m := reProgress.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	p := Progress{Timemark: m[6]}
	p.Frames, _ = strconv.ParseUint(m[1], 10, 64)
	if fps, err := strconv.ParseFloat(m[2], 64); err == nil {
		p.CurrentFPS = uint64(fps)
	}
	p.TargetSize, _ = strconv.ParseUint(m[5], 10, 64)
	p.CurrentKbps, _ = strconv.ParseFloat(m[11], 64)

	if durationSec > 0 {
		percent := TimemarkToSeconds(p.Timemark) / durationSec * 100
		p.Percent = &percent
	}

	return p, true
}

// lastCompleteLine returns the line terminated by the final \r, \n or \r\n,
// scanning back from the end of s.
func lastCompleteLine(s string) (string, bool) {
	end := strings.LastIndexAny(s, "\r\n")
	if end < 0 {
		return "", false
	}
	if s[end] == '\n' && end > 0 && s[end-1] == '\r' {
		end--
	}
	start := strings.LastIndexAny(s[:end], "\r\n") + 1
	return s[start:end], true
}

// ParseCodecs extracts the audio and video codec labels. It reports false
// until ffmpeg has printed its stream summary.
func ParseCodecs(stderr string) (Codecs, bool) {
	if !strings.Contains(stderr, codecsReady) {
		return Codecs{}, false
	}

	c := Codecs{}
	if m := reAudio.FindStringSubmatch(stderr); m != nil {
		c.Audio = m[1]
	}
	if m := reVideo.FindStringSubmatch(stderr); m != nil {
		c.Video = m[1]
	}
	return c, true
}

// TimemarkToSeconds converts "HH:MM:SS.hh" (or plain seconds) to seconds.
// Malformed input yields 0.
func TimemarkToSeconds(timemark string) float64 {
	parts := strings.Split(timemark, ":")
	if len(parts) > 3 {
		return 0
	}

	secs := 0.0
	for _, part := range parts {
		x, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0
		}
		secs = secs*60 + x
	}
	return secs
}
