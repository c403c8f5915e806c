// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package ffmpeg

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Options is the resolved configuration of one transcode or capture operation.
// Only OutputFile is written back while an operation runs.
type Options struct {
	InputFile   string
	InputStream io.Reader
	OutputFile  string

	StartTime string
	Duration  string
	Format    string

	Video VideoOptions
	Audio AudioOptions

	// Additional is appended verbatim after the audio clause.
	Additional []string

	Timeout time.Duration
	Nice    *int

	// UpdateMetadata requests the post-processing metadata rewrite. It is
	// implied for flv output.
	UpdateMetadata bool
}

// VideoOptions for the video clause
type VideoOptions struct {
	Skip            bool
	Bitrate         int // kbit/s
	ConstantBitrate bool
	Codec           string
	FPS             float64
	Aspect          string
	Pad             *Pad
	PadColor        string
	Size            string // WxH
}

// Pad box of the pad filter
type Pad struct {
	W, H, X, Y int
}

// AudioOptions for the audio clause
type AudioOptions struct {
	Skip      bool
	Bitrate   int // kbit/s
	Channels  int
	Codec     string
	Frequency int
}

// formats ffmpeg can write to a non-seekable pipe
var streamableFormats = map[string]bool{
	"flv":      true,
	"mpegts":   true,
	"matroska": true,
	"webm":     true,
	"ogg":      true,
	"mp3":      true,
	"adts":     true,
	"mjpeg":    true,
	"rawvideo": true,
	"nut":      true,
	"mpeg":     true,
	"s16le":    true,
	"wav":      true,
}

// Validate checks value ranges that ffmpeg would reject late
func (o *Options) Validate() error {
	if o.Video.Bitrate < 0 || o.Audio.Bitrate < 0 {
		return fmt.Errorf("%w: negative bitrate", ErrConfiguration)
	}
	if o.Video.FPS < 0 {
		return fmt.Errorf("%w: negative frame rate", ErrConfiguration)
	}
	if o.Audio.Channels < 0 || o.Audio.Frequency < 0 {
		return fmt.Errorf("%w: negative audio channels or frequency", ErrConfiguration)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrConfiguration)
	}
	if o.Nice != nil && (*o.Nice < -20 || *o.Nice > 19) {
		return fmt.Errorf("%w: nice level %d out of range -20..19", ErrConfiguration, *o.Nice)
	}
	if o.Video.Size != "" {
		if _, _, ok := o.Dimensions(); !ok {
			return fmt.Errorf("%w: size %q is not WxH", ErrConfiguration, o.Video.Size)
		}
	}
	if o.Video.Pad != nil && (o.Video.Pad.W <= 0 || o.Video.Pad.H <= 0) {
		return fmt.Errorf("%w: pad box needs a positive width and height", ErrConfiguration)
	}
	return nil
}

// Streamable reports whether the output format can be written to a pipe
func (o *Options) Streamable() bool {
	return streamableFormats[strings.ToLower(o.Format)]
}

// NeedsMetadataUpdate reports whether the output benefits from a metadata rewrite
func (o *Options) NeedsMetadataUpdate() bool {
	return o.UpdateMetadata || strings.EqualFold(o.Format, "flv")
}

// Dimensions parses Video.Size
func (o *Options) Dimensions() (width, height int, ok bool) {
	w, h, found := strings.Cut(strings.ToLower(o.Video.Size), "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, false
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}
