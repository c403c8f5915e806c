// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

// Package transcode runs complete operations: probe the input, build the
// arguments, supervise ffmpeg and post-process the result.
package transcode

import (
	"context"
	"fmt"
	"io"

	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/ffmpeg/parse"
	"github.com/ZSC714725/mediaproc/internal/finalize"
	"github.com/ZSC714725/mediaproc/internal/logger"
	"github.com/ZSC714725/mediaproc/internal/probe"
	"github.com/ZSC714725/mediaproc/internal/process"
	"github.com/ZSC714725/mediaproc/internal/screenshot"
)

// Binary spawns ffmpeg processes. ffmpeg.FFmpeg implements it.
type Binary interface {
	New(config process.Config) (process.Process, error)
	Version() string
}

// Observers of a single operation. All are optional.
type Observers struct {
	OnStateChange func(from, to State)
	OnProgress    func(parse.Progress)
	OnCodecData   func(parse.Codecs)
	// OnProcess is called with the supervised process before it starts
	OnProcess    func(process.Process)
	OnScreenshot func(screenshot.Task)
}

// Result of a transcode
type Result struct {
	process.Result

	Metadata probe.Metadata
	Progress *parse.Progress
	Codecs   *parse.Codecs
	Log      []process.Line

	// Finalized is set if the metadata rewrite ran. FinalizeError does not
	// turn a successful transcode into a failure.
	Finalized     bool
	FinalizeError error
}

// Config for a Processor
type Config struct {
	FFmpeg    Binary
	Prober    probe.Prober
	Finalizer finalize.Finalizer
	Logger    logger.Logger
	// LogLines kept from stderr for the result
	LogLines int
	// Monitor returns a fresh process monitor per run. Defaults to no monitoring.
	Monitor func() process.Monitor
}

// Processor runs operations. It keeps no per-operation state and can be
// shared.
type Processor struct {
	ffmpeg    Binary
	prober    probe.Prober
	finalizer finalize.Finalizer
	logger    logger.Logger
	logLines  int
	monitor   func() process.Monitor
}

// New creates a Processor
func New(config Config) (*Processor, error) {
	if config.FFmpeg == nil {
		return nil, fmt.Errorf("%w: no ffmpeg given", ffmpeg.ErrConfiguration)
	}

	p := &Processor{
		ffmpeg:    config.FFmpeg,
		prober:    config.Prober,
		finalizer: config.Finalizer,
		logger:    config.Logger,
		logLines:  config.LogLines,
		monitor:   config.Monitor,
	}

	if p.logger == nil {
		p.logger = logger.Nop()
	}
	if p.finalizer == nil {
		p.finalizer = finalize.New(finalize.Config{Logger: p.logger})
	}
	if p.monitor == nil {
		p.monitor = process.NewNullMonitor
	}

	return p, nil
}

// SaveToFile transcodes into target. target is written back to o.OutputFile.
func (p *Processor) SaveToFile(ctx context.Context, o *ffmpeg.Options, target string, obs Observers) (Result, error) {
	o.OutputFile = target
	m := newMachine(obs.OnStateChange)

	meta, err := p.prepare(ctx, m, o)
	if err != nil {
		return Result{}, p.fail(m, err)
	}

	args, err := ffmpeg.BuildArgs(o, meta, false, p.logger)
	if err != nil {
		return Result{Metadata: meta}, p.fail(m, err)
	}

	result, err := p.run(m, o, args, nil, meta, obs)
	if err != nil {
		return result, err
	}

	if o.NeedsMetadataUpdate() {
		m.transition(StateFinalizing)
		result.Finalized, result.FinalizeError = p.finalizer.Finalize(o)
		if result.FinalizeError != nil {
			p.logger.Warn("post processing %s: %v", o.OutputFile, result.FinalizeError)
		}
	}

	m.transition(StateDone)
	return result, nil
}

// WriteToStream transcodes into w. The format must be streamable.
func (p *Processor) WriteToStream(ctx context.Context, o *ffmpeg.Options, w io.Writer, obs Observers) (Result, error) {
	m := newMachine(obs.OnStateChange)

	if !o.Streamable() {
		p.logger.Error("selected output format is not streamable")
		return Result{}, p.fail(m, fmt.Errorf("%w: output format %q is not streamable", ffmpeg.ErrConfiguration, o.Format))
	}

	meta, err := p.prepare(ctx, m, o)
	if err != nil {
		return Result{}, p.fail(m, err)
	}

	// the stream replaces any output file
	so := *o
	so.OutputFile = ""
	args, err := ffmpeg.BuildArgs(&so, meta, true, p.logger)
	if err != nil {
		return Result{Metadata: meta}, p.fail(m, err)
	}
	args = append(args, ffmpeg.StdoutTarget)

	result, err := p.run(m, o, args, w, meta, obs)
	if err != nil {
		return result, err
	}

	m.transition(StateDone)
	return result, nil
}

// TakeScreenshots captures a batch of frames into folder
func (p *Processor) TakeScreenshots(ctx context.Context, o *ffmpeg.Options, req screenshot.Request, folder string, obs Observers) ([]string, error) {
	m := newMachine(obs.OnStateChange)

	if o.InputStream != nil {
		return nil, p.fail(m, ffmpeg.ErrStreamNotSeekable)
	}

	meta, err := p.prepare(ctx, m, o)
	if err != nil {
		return nil, p.fail(m, err)
	}

	if o.Video.Size == "" {
		return nil, p.fail(m, fmt.Errorf("%w: set the size of the screenshots", ffmpeg.ErrConfiguration))
	}
	if _, err := screenshot.Plan(o, meta.DurationSeconds, req); err != nil {
		return nil, p.fail(m, err)
	}

	m.transition(StateRunning)
	shots := screenshot.New(screenshot.Config{
		Spawner: p.ffmpeg,
		Logger:  p.logger,
		OnTask:  obs.OnScreenshot,
	})
	filenames, err := shots.Capture(o, meta, req, folder)
	if err != nil {
		return filenames, p.fail(m, err)
	}

	m.transition(StateDone)
	return filenames, nil
}

// prepare moves through probing into building and returns the metadata
func (p *Processor) prepare(ctx context.Context, m *machine, o *ffmpeg.Options) (probe.Metadata, error) {
	m.transition(StateProbing)

	if err := o.Validate(); err != nil {
		return probe.Metadata{}, err
	}
	if err := ffmpeg.CheckInput(o); err != nil {
		return probe.Metadata{}, err
	}

	meta := probe.Metadata{}
	if o.InputStream == nil && p.prober != nil {
		var err error
		if meta, err = p.prober.Probe(ctx, o.InputFile); err != nil {
			return probe.Metadata{}, err
		}
	}
	meta.Version = p.ffmpeg.Version()

	m.transition(StateBuilding)
	return meta, nil
}

func (p *Processor) run(m *machine, o *ffmpeg.Options, args []string, w io.Writer, meta probe.Metadata, obs Observers) (Result, error) {
	tracker := parse.NewTracker(parse.Config{
		DurationSeconds: meta.DurationSeconds,
		LogLines:        p.logLines,
		OnProgress:      obs.OnProgress,
		OnCodecData:     obs.OnCodecData,
	})

	proc, err := p.ffmpeg.New(process.Config{
		Args:    args,
		Stdin:   o.InputStream,
		Stdout:  w,
		Timeout: o.Timeout,
		Nice:    o.Nice,
		Parser:  tracker,
		Logger:  p.logger,
		Monitor: p.monitor(),
	})
	if err != nil {
		return Result{Metadata: meta}, p.fail(m, err)
	}

	m.transition(StateRunning)
	if obs.OnProcess != nil {
		obs.OnProcess(proc)
	}

	pr, err := proc.Run()

	result := Result{
		Result:   pr,
		Metadata: meta,
		Log:      tracker.Log(),
	}
	if progress, ok := tracker.Progress(); ok {
		result.Progress = &progress
	}
	if codecs, ok := tracker.Codecs(); ok {
		result.Codecs = &codecs
	}

	if err != nil {
		return result, p.fail(m, err)
	}
	return result, nil
}

func (p *Processor) fail(m *machine, err error) error {
	if terr := m.transition(StateFailed); terr != nil {
		p.logger.Debug("%v", terr)
	}
	return err
}
