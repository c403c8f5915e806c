// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/ffmpeg/parse"
	"github.com/ZSC714725/mediaproc/internal/logger"
	"github.com/ZSC714725/mediaproc/internal/probe"
	"github.com/ZSC714725/mediaproc/internal/process"
	"github.com/ZSC714725/mediaproc/internal/screenshot"
	"github.com/ZSC714725/mediaproc/internal/transcode"

	"github.com/lithammer/shortuuid/v4"
)

// Runner executes operations. transcode.Processor implements it.
type Runner interface {
	SaveToFile(ctx context.Context, o *ffmpeg.Options, target string, obs transcode.Observers) (transcode.Result, error)
	TakeScreenshots(ctx context.Context, o *ffmpeg.Options, req screenshot.Request, folder string, obs transcode.Observers) ([]string, error)
}

// Validator checks addresses. ffmpeg.FFmpeg implements it.
type Validator interface {
	ValidateInput(address string) bool
	ValidateOutput(address string) bool
}

// Job is one asynchronous operation
type Job struct {
	ID        string
	Reference string
	Kind      Kind
	Config    *Config
	CreatedAt int64

	lock      sync.RWMutex
	state     transcode.State
	updatedAt int64
	progress  *parse.Progress
	codecs    *parse.Codecs
	proc      process.Process
	result    *transcode.Result
	files     []string
	err       error
	done      chan struct{}
}

// Report is the outcome of a finished job
type Report struct {
	State         transcode.State
	Error         error
	ExitCode      int
	Message       string
	Metadata      probe.Metadata
	Files         []string
	Log           []process.Line
	Finalized     bool
	FinalizeError error
}

// State returns the current operation state
func (j *Job) State() transcode.State {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.state
}

// UpdatedAt returns the unix time of the last state change
func (j *Job) UpdatedAt() int64 {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.updatedAt
}

// Progress returns the latest progress snapshot, nil if none
func (j *Job) Progress() *parse.Progress {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.progress
}

// Codecs returns the codec announcement, nil if none
func (j *Job) Codecs() *parse.Codecs {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.codecs
}

// Status returns the status of the ffmpeg process, false before it exists
func (j *Job) Status() (process.Status, bool) {
	j.lock.RLock()
	proc := j.proc
	j.lock.RUnlock()

	if proc == nil {
		return process.Status{}, false
	}
	return proc.Status(), true
}

// Files returns the screenshots produced so far
func (j *Job) Files() []string {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return append([]string(nil), j.files...)
}

// IsFinished reports whether the job reached done or failed
func (j *Job) IsFinished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Done is closed when the job finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Report returns the outcome, false while the job is running
func (j *Job) Report() (Report, bool) {
	if !j.IsFinished() {
		return Report{}, false
	}

	j.lock.RLock()
	defer j.lock.RUnlock()

	r := Report{
		State: j.state,
		Error: j.err,
		Files: append([]string(nil), j.files...),
	}
	if j.result != nil {
		r.ExitCode = j.result.ExitCode
		r.Message = j.result.Message
		r.Metadata = j.result.Metadata
		r.Log = j.result.Log
		r.Finalized = j.result.Finalized
		r.FinalizeError = j.result.FinalizeError
	}
	return r, true
}

func (j *Job) setState(to transcode.State) {
	j.lock.Lock()
	j.state = to
	j.updatedAt = time.Now().Unix()
	j.lock.Unlock()
}

func (j *Job) observers(log logger.Logger) transcode.Observers {
	return transcode.Observers{
		OnStateChange: func(from, to transcode.State) {
			j.setState(to)
			log.Debug("job %s state %s -> %s", j.ID, from, to)
		},
		OnProgress: func(p parse.Progress) {
			j.lock.Lock()
			j.progress = &p
			j.lock.Unlock()
		},
		OnCodecData: func(c parse.Codecs) {
			j.lock.Lock()
			j.codecs = &c
			j.lock.Unlock()
			log.Info("job %s codecs: audio %q video %q", j.ID, c.Audio, c.Video)
		},
		OnProcess: func(p process.Process) {
			j.lock.Lock()
			j.proc = p
			j.lock.Unlock()
		},
		OnScreenshot: func(t screenshot.Task) {
			j.lock.Lock()
			j.files = append(j.files, t.Filename)
			j.lock.Unlock()
		},
	}
}

// Store manages jobs in memory. Each job runs on its own goroutine as soon
// as it is added; there is no way to cancel it.
type Store interface {
	Add(config *Config) (*Job, error)
	Get(id string) (*Job, error)
	List(reference string) []*Job
	Delete(id string) error
}

type store struct {
	runner    Runner
	validator Validator
	logger    logger.Logger
	jobs      map[string]*Job
	mu        sync.RWMutex
}

// NewStore creates a job store
func NewStore(runner Runner, validator Validator, log logger.Logger) Store {
	if log == nil {
		log = logger.Nop()
	}
	return &store{
		runner:    runner,
		validator: validator,
		logger:    log,
		jobs:      make(map[string]*Job),
	}
}

func (s *store) Add(config *Config) (*Job, error) {
	if config.Options == nil {
		return nil, ErrInvalidConfig
	}
	if config.Kind == "" {
		config.Kind = KindTranscode
	}

	input, output := config.addresses()
	if (len(input) == 0 && config.Options.InputStream == nil) || len(output) == 0 {
		return nil, ErrInvalidConfig
	}
	if config.Options.InputStream == nil && !s.validator.ValidateInput(input) {
		return nil, ErrInvalidInputAddress
	}
	if !s.validator.ValidateOutput(output) {
		return nil, ErrInvalidOutputAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(config.ID) == 0 {
		config.ID = shortuuid.New()
	}
	if _, exists := s.jobs[config.ID]; exists {
		return nil, ErrJobExists
	}

	now := time.Now().Unix()
	job := &Job{
		ID:        config.ID,
		Reference: config.Reference,
		Kind:      config.Kind,
		Config:    config,
		CreatedAt: now,
		state:     transcode.StateIdle,
		updatedAt: now,
		done:      make(chan struct{}),
	}
	s.jobs[config.ID] = job

	go s.run(job)

	return job, nil
}

func (s *store) run(job *Job) {
	defer close(job.done)

	log := logger.With(s.logger, "job", job.ID)
	obs := job.observers(log)
	config := job.Config
	ctx := context.Background()

	var err error
	switch config.Kind {
	case KindScreenshots:
		var files []string
		files, err = s.runner.TakeScreenshots(ctx, config.Options, config.Screenshots, config.Folder, obs)
		job.lock.Lock()
		job.files = files
		job.lock.Unlock()
	default:
		var result transcode.Result
		result, err = s.runner.SaveToFile(ctx, config.Options, config.Options.OutputFile, obs)
		job.lock.Lock()
		job.result = &result
		job.lock.Unlock()
	}

	job.lock.Lock()
	job.err = err
	job.lock.Unlock()

	if err != nil {
		log.Warn("%s failed: %v", config.Kind, err)
		return
	}
	log.Info("%s finished", config.Kind)
}

func (s *store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// List returns jobs ordered by creation, optionally filtered by reference
func (s *store) List(reference string) []*Job {
	s.mu.RLock()
	var out []*Job
	for _, j := range s.jobs {
		if len(reference) > 0 && j.Reference != reference {
			continue
		}
		out = append(out, j)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].CreatedAt != out[b].CreatedAt {
			return out[a].CreatedAt < out[b].CreatedAt
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Delete forgets a finished job. Running jobs can't be deleted.
func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !j.IsFinished() {
		return ErrJobRunning
	}

	delete(s.jobs, id)
	return nil
}
