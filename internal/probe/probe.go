// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具
//
// Package probe inspects media inputs with ffprobe before arguments are built.

package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var ErrProbeFailed = errors.New("probe failed")

// Metadata are the facts about an input needed to build arguments and
// compute progress. A zero DurationSeconds means the duration is unknown.
type Metadata struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Version         string  `json:"ffmpeg_version"`
	Format          string  `json:"format,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
}

// HasDuration reports whether a positive duration is known
func (m Metadata) HasDuration() bool {
	return m.DurationSeconds > 0 && !math.IsNaN(m.DurationSeconds) && !math.IsInf(m.DurationSeconds, 0)
}

// Prober inspects an input source
type Prober interface {
	Probe(ctx context.Context, input string) (Metadata, error)
}

// FFprobe runs the ffprobe binary
type FFprobe struct {
	Binary string
}

// NewFFprobe returns a prober using binary, "ffprobe" when empty
func NewFFprobe(binary string) *FFprobe {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{Binary: binary}
}

type result struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe executes ffprobe against input and decodes its JSON report
func (p *FFprobe) Probe(ctx context.Context, input string) (Metadata, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Metadata{}, fmt.Errorf("%w: empty input", ErrProbeFailed)
	}

	cmd := exec.CommandContext(ctx, p.Binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", input)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return Metadata{}, fmt.Errorf("%w: %s: %v %s", ErrProbeFailed, input, err, detail)
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON report
func Parse(data []byte) (Metadata, error) {
	var r result
	if err := json.Unmarshal(data, &r); err != nil {
		return Metadata{}, fmt.Errorf("%w: decode ffprobe output: %v", ErrProbeFailed, err)
	}

	m := Metadata{
		DurationSeconds: parseSeconds(r.Format.Duration),
		Format:          r.Format.FormatName,
	}
	for _, s := range r.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			if m.VideoCodec == "" {
				m.VideoCodec = s.CodecName
				m.Width = s.Width
				m.Height = s.Height
			}
		case "audio":
			if m.AudioCodec == "" {
				m.AudioCodec = s.CodecName
			}
		}
		// some containers only report durations per stream
		if m.DurationSeconds == 0 {
			if d := parseSeconds(s.Duration); d > 0 {
				m.DurationSeconds = d
			}
		}
	}
	return m, nil
}

func parseSeconds(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
