// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package task

import "errors"

var (
	ErrNotFound             = errors.New("job not found")
	ErrJobExists            = errors.New("job already exists")
	ErrJobRunning           = errors.New("job is still running")
	ErrInvalidConfig        = errors.New("invalid config: need an input and an output")
	ErrInvalidInputAddress  = errors.New("invalid input address")
	ErrInvalidOutputAddress = errors.New("invalid output address")
)
