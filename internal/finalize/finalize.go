// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package finalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZSC714725/mediaproc/internal/capability"
	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/logger"
	"github.com/ZSC714725/mediaproc/internal/process"
)

// DefaultTool rewrites flash video metadata in place
const DefaultTool = "flvtool2"

// ErrRewriteFailed wraps failures of the metadata rewrite
var ErrRewriteFailed = errors.New("metadata rewrite failed")

// Finalizer post-processes a finished output file
type Finalizer interface {
	// Finalize returns whether the rewrite ran, and any error it produced
	Finalize(o *ffmpeg.Options) (bool, error)
}

// Config for a Finalizer
type Config struct {
	// Tool is the metadata rewriter, DefaultTool if empty
	Tool    string
	Cache   *capability.Cache
	Probe   capability.ProbeFunc
	Timeout time.Duration
	Logger  logger.Logger
}

type finalizer struct {
	tool    string
	cache   *capability.Cache
	probe   capability.ProbeFunc
	timeout time.Duration
	logger  logger.Logger
}

// New creates a Finalizer
func New(config Config) Finalizer {
	f := &finalizer{
		tool:    config.Tool,
		cache:   config.Cache,
		probe:   config.Probe,
		timeout: config.Timeout,
		logger:  config.Logger,
	}

	if f.tool == "" {
		f.tool = DefaultTool
	}
	if f.cache == nil {
		f.cache = capability.Default
	}
	if f.logger == nil {
		f.logger = logger.Nop()
	}

	return f
}

func (f *finalizer) Finalize(o *ffmpeg.Options) (bool, error) {
	if !o.NeedsMetadataUpdate() || o.OutputFile == "" {
		return false, nil
	}

	if !f.cache.Resolve(f.tool, f.probe) {
		f.logger.Debug("%s not available, skipping metadata update", f.tool)
		return false, nil
	}

	result, err := process.Run(process.Config{
		Binary:  f.tool,
		Args:    []string{"-U", o.OutputFile},
		Timeout: f.timeout,
		Logger:  f.logger,
	})
	if err != nil {
		f.logger.Warn("%s -U %s: %s", f.tool, o.OutputFile, result.Message)
		return true, fmt.Errorf("%w: %w", ErrRewriteFailed, err)
	}

	f.logger.Debug("updated metadata of %s", o.OutputFile)
	return true, nil
}
