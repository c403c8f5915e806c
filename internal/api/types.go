// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package api

import (
	"github.com/ZSC714725/mediaproc/internal/ffmpeg/parse"
	"github.com/ZSC714725/mediaproc/internal/probe"
)

// PadRequest is the pad box
type PadRequest struct {
	W int `json:"w" binding:"required,gt=0"`
	H int `json:"h" binding:"required,gt=0"`
	X int `json:"x"`
	Y int `json:"y"`
}

// VideoRequest for the video clause
type VideoRequest struct {
	Skip            bool        `json:"skip"`
	Bitrate         int         `json:"bitrate_kbit"`
	ConstantBitrate bool        `json:"constant_bitrate"`
	Codec           string      `json:"codec"`
	FPS             float64     `json:"fps"`
	Aspect          string      `json:"aspect"`
	Pad             *PadRequest `json:"pad"`
	PadColor        string      `json:"pad_color"`
	Size            string      `json:"size"`
}

// AudioRequest for the audio clause
type AudioRequest struct {
	Skip      bool   `json:"skip"`
	Bitrate   int    `json:"bitrate_kbit"`
	Channels  int    `json:"channels"`
	Codec     string `json:"codec"`
	Frequency int    `json:"frequency"`
}

// OptionsRequest is shared by transcode and screenshot requests
type OptionsRequest struct {
	ID             string       `json:"id"`
	Reference      string       `json:"reference"`
	Input          string       `json:"input" binding:"required"`
	StartTime      string       `json:"start_time"`
	Duration       string       `json:"duration"`
	Format         string       `json:"format"`
	Video          VideoRequest `json:"video"`
	Audio          AudioRequest `json:"audio"`
	Options        []string     `json:"options"`
	TimeoutSeconds *uint64      `json:"timeout_seconds"`
	Nice           *int         `json:"nice"`
	UpdateMetadata bool         `json:"update_metadata"`
}

// TranscodeRequest for POST /transcode
type TranscodeRequest struct {
	OptionsRequest
	Output string `json:"output" binding:"required"`
}

// ScreenshotsRequest for POST /screenshots
type ScreenshotsRequest struct {
	OptionsRequest
	Count     int      `json:"count"`
	Timemarks []string `json:"timemarks"`
	Filename  string   `json:"filename"`
	Folder    string   `json:"folder"`
}

// Job represents a job in API responses
type Job struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Reference string          `json:"reference"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
	State     string          `json:"state"`
	Progress  *parse.Progress `json:"progress,omitempty"`
	Codecs    *parse.Codecs   `json:"codecs,omitempty"`
	Process   *ProcessState   `json:"process,omitempty"`
	Files     []string        `json:"files,omitempty"`
}

// ProcessState of the supervised ffmpeg
type ProcessState struct {
	State   string  `json:"exec"`
	Pid     int     `json:"pid"`
	Runtime int64   `json:"runtime_seconds"`
	Memory  uint64  `json:"memory_bytes"`
	CPU     float64 `json:"cpu_usage"`
	Nice    *int32  `json:"nice,omitempty"`
}

// JobReport of a finished job
type JobReport struct {
	ID            string         `json:"id"`
	State         string         `json:"state"`
	Error         string         `json:"error,omitempty"`
	ExitCode      int            `json:"exit_code"`
	Message       string         `json:"message,omitempty"`
	Metadata      probe.Metadata `json:"metadata"`
	Files         []string       `json:"files,omitempty"`
	Log           [][2]string    `json:"log"`
	Finalized     bool           `json:"finalized"`
	FinalizeError string         `json:"finalize_error,omitempty"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
