// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

// Package screenshot extracts single frames at computed offsets, one ffmpeg
// run per frame, strictly in sequence.
package screenshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/logger"
	"github.com/ZSC714725/mediaproc/internal/probe"
	"github.com/ZSC714725/mediaproc/internal/process"
)

// ErrNoDuration is returned when the input duration is unknown
var ErrNoDuration = ffmpeg.ErrNoDuration

// Spawner creates supervised ffmpeg processes. ffmpeg.FFmpeg implements it.
type Spawner interface {
	New(config process.Config) (process.Process, error)
}

// Config for an Orchestrator
type Config struct {
	Spawner Spawner
	Logger  logger.Logger
	// OnTask is called after each finished frame
	OnTask func(task Task)
}

// Orchestrator runs screenshot batches
type Orchestrator struct {
	spawner Spawner
	logger  logger.Logger
	onTask  func(task Task)
}

// New creates an Orchestrator
func New(config Config) *Orchestrator {
	o := &Orchestrator{
		spawner: config.Spawner,
		logger:  config.Logger,
		onTask:  config.OnTask,
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	return o
}

// Capture writes the batch into folder and returns the produced filenames,
// relative to folder. On failure the filenames produced so far are returned
// along with the error.
func (c *Orchestrator) Capture(o *ffmpeg.Options, meta probe.Metadata, req Request, folder string) ([]string, error) {
	if o.Video.Size == "" {
		return nil, fmt.Errorf("%w: set the size of the screenshots", ffmpeg.ErrConfiguration)
	}
	if o.InputStream != nil || o.InputFile == "" {
		return nil, ffmpeg.ErrStreamNotSeekable
	}
	if !meta.HasDuration() {
		c.logger.Warn("meta data contains no duration, aborting screenshot creation")
		return nil, ErrNoDuration
	}

	tasks, err := Plan(o, meta.DurationSeconds, req)
	if err != nil {
		return nil, err
	}

	if folder == "" {
		folder = "."
	}
	if err := ensureFolder(folder); err != nil {
		return nil, err
	}

	filenames := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if err := c.run(o, task, folder); err != nil {
			return filenames, fmt.Errorf("screenshot %d at %ss: %w", task.Index, ffmpeg.FormatSeconds(task.Offset), err)
		}
		filenames = append(filenames, task.Filename)
		if c.onTask != nil {
			c.onTask(task)
		}
	}

	return filenames, nil
}

func (c *Orchestrator) run(o *ffmpeg.Options, task Task, folder string) error {
	target := filepath.Join(folder, task.Filename)

	proc, err := c.spawner.New(process.Config{
		Args:    ffmpeg.ScreenshotArgs(o.InputFile, task.Offset, o.Video.Size, target),
		Timeout: o.Timeout,
		Nice:    o.Nice,
		Logger:  c.logger,
	})
	if err != nil {
		return err
	}

	_, err = proc.Run()
	return err
}

// ensureFolder creates a single missing level
func ensureFolder(folder string) error {
	fi, err := os.Stat(folder)
	if err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ffmpeg.ErrConfiguration, folder)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Mkdir(folder, 0o755)
}
