// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package process

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSpawnFailed = errors.New("process spawn failed")
	ErrTimeout     = errors.New("process ran into a timeout")
	ErrExitNonZero = errors.New("process exited with non-zero code")
	ErrAlreadyRun  = errors.New("process already run")
)

// ExitError carries the exit code and the full stderr text of a failed run.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if last := LastLine(e.Stderr); last != "" {
		return fmt.Sprintf("process exited with code %d: %s", e.Code, last)
	}
	return fmt.Sprintf("process exited with code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return ErrExitNonZero }

// LastLine returns the last non-empty line of text, truncated to 200 characters.
func LastLine(text string) string {
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if len(line) > 200 {
			return line[:200] + "..."
		}
		return line
	}
	return ""
}
