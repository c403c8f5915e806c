// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package process

import "time"

// Parser is offered the complete stderr text accumulated so far, once per chunk.
type Parser interface {
	Parse(stderr string)
}

// ParserFunc adapts a plain function to Parser
type ParserFunc func(stderr string)

func (f ParserFunc) Parse(stderr string) { f(stderr) }

// Line is a timestamped log line
type Line struct {
	Timestamp time.Time
	Data      string
}

type nullParser struct{}

func (p *nullParser) Parse(stderr string) {}
