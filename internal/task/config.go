// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package task

import (
	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/screenshot"
)

// Kind of job
type Kind string

const (
	KindTranscode   Kind = "transcode"
	KindScreenshots Kind = "screenshots"
)

// Config for a job
type Config struct {
	ID        string
	Reference string
	Kind      Kind

	// Options of the operation. Options.OutputFile is the transcode target.
	Options *ffmpeg.Options

	// Screenshots and Folder are used by KindScreenshots
	Screenshots screenshot.Request
	Folder      string
}

// addresses returns the input and output addresses to validate
func (c *Config) addresses() (input, output string) {
	input = c.Options.InputFile
	switch c.Kind {
	case KindScreenshots:
		output = c.Folder
	default:
		output = c.Options.OutputFile
	}
	return input, output
}
