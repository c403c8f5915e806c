// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package ffmpeg

import "errors"

var (
	ErrConfiguration     = errors.New("invalid configuration")
	ErrInputNotReadable  = errors.New("input file is not readable")
	ErrUnsupportedOption = errors.New("option not supported by ffmpeg version")
	ErrNoDuration        = errors.New("meta data contains no duration")
	ErrStreamNotSeekable = errors.New("operation requires a file, not a stream")
)
