// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具
//
// Package process supervises a single run of an external binary.

package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// ExitTimeout is reported in place of an exit code when the kill timer fired.
	ExitTimeout = -99
	// TimeoutMessage accompanies ExitTimeout.
	TimeoutMessage = "timeout"

	// killGrace bounds the wait for output pipes held open by descendants
	// that left the process group after a kill.
	killGrace = time.Second
)

// Process represents a one-shot supervised process
type Process interface {
	Run() (Result, error)
	Status() Status
}

// Config for a process
type Config struct {
	Binary string
	Args   []string

	// Stdin is piped into the process input as it is read. The process owns
	// the stream: if it is an io.Closer it is closed once the process exited.
	Stdin io.Reader
	// Stdout receives output chunks as they arrive. When nil, output is
	// accumulated into Result.Stdout.
	Stdout io.Writer

	// Timeout arms a kill timer. Zero disables it.
	Timeout time.Duration
	// Nice, when set, renices the process after spawn (not on windows).
	Nice *int

	Parser        Parser
	OnStart       func(pid int)
	OnStateChange func(from, to string)
	Logger        Logger
	Monitor       Monitor
}

// Result of a run
type Result struct {
	ExitCode int
	Message  string
	Stdout   []byte
	Stderr   string
	Duration time.Duration
}

// TimedOut reports whether the run was killed by the timeout timer
func (r Result) TimedOut() bool {
	return r.ExitCode == ExitTimeout
}

// Status of a process
type Status struct {
	State    string
	States   States
	Pid      int
	Duration time.Duration
	Time     time.Time
	CPU      float64
	Memory   uint64
	Nice     *int32
}

// States cumulative counts
type States struct {
	Starting uint64
	Running  uint64
	Finished uint64
	Failed   uint64
	Killed   uint64
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type stateType string

const (
	stateIdle     stateType = "idle"
	stateStarting stateType = "starting"
	stateRunning  stateType = "running"
	stateFinished stateType = "finished"
	stateFailed   stateType = "failed"
	stateKilled   stateType = "killed"
)

func (s stateType) String() string { return string(s) }

type process struct {
	binary  string
	args    []string
	stdin   io.Reader
	stdout  io.Writer
	timeout time.Duration
	nice    *int

	cmd *exec.Cmd
	pid int

	state struct {
		state  stateType
		time   time.Time
		states States
		lock   sync.Mutex
	}
	parser        Parser
	killed        chan struct{}
	killTimer     *time.Timer
	killTimerLock sync.Mutex
	logger        Logger
	monitor       Monitor
	callbacks     struct {
		onStart       func(pid int)
		onStateChange func(from, to string)
	}
}

// New creates a new process
func New(config Config) (Process, error) {
	p := &process{
		binary:  config.Binary,
		args:    config.Args,
		stdin:   config.Stdin,
		stdout:  config.Stdout,
		timeout: config.Timeout,
		nice:    config.Nice,
		parser:  config.Parser,
		logger:  config.Logger,
		monitor: config.Monitor,
		killed:  make(chan struct{}),
	}

	if len(p.binary) == 0 {
		return nil, fmt.Errorf("no valid binary given")
	}
	if p.timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %s", p.timeout)
	}

	if p.parser == nil {
		p.parser = &nullParser{}
	}
	if p.logger == nil {
		p.logger = &nopLogger{}
	}
	if p.monitor == nil {
		p.monitor = NewNullMonitor()
	}

	p.callbacks.onStart = config.OnStart
	p.callbacks.onStateChange = config.OnStateChange

	p.state.state = stateIdle
	p.state.time = time.Now()

	return p, nil
}

// Run is New followed by Run
func Run(config Config) (Result, error) {
	p, err := New(config)
	if err != nil {
		return Result{}, err
	}
	return p.Run()
}

func (p *process) setState(state stateType) error {
	p.state.lock.Lock()

	prevState := p.state.state
	failed := false

	switch p.state.state {
	case stateIdle:
		if state == stateStarting {
			p.state.state = state
			p.state.states.Starting++
		} else {
			failed = true
		}
	case stateStarting:
		switch state {
		case stateRunning:
			p.state.state = state
			p.state.states.Running++
		case stateFailed:
			p.state.state = state
			p.state.states.Failed++
		default:
			failed = true
		}
	case stateRunning:
		switch state {
		case stateFinished:
			p.state.state = state
			p.state.states.Finished++
		case stateFailed:
			p.state.state = state
			p.state.states.Failed++
		case stateKilled:
			p.state.state = state
			p.state.states.Killed++
		default:
			failed = true
		}
	case stateFinished, stateFailed, stateKilled:
		failed = true
	default:
		p.state.lock.Unlock()
		return fmt.Errorf("unhandled state: %s", prevState)
	}

	if failed {
		p.state.lock.Unlock()
		return fmt.Errorf("can't change from %s to %s", prevState, state)
	}

	p.state.time = time.Now()
	p.state.lock.Unlock()

	if p.callbacks.onStateChange != nil {
		p.callbacks.onStateChange(prevState.String(), state.String())
	}
	return nil
}

func (p *process) Status() Status {
	cpu, memory := p.monitor.Current()

	p.state.lock.Lock()
	s := Status{
		State:    p.state.state.String(),
		States:   p.state.states,
		Pid:      p.pid,
		Duration: time.Since(p.state.time),
		Time:     p.state.time,
		CPU:      cpu,
		Memory:   memory,
	}
	p.state.lock.Unlock()

	if nice, ok := p.monitor.Nice(); ok {
		s.Nice = &nice
	}
	return s
}

func (p *process) Run() (Result, error) {
	if err := p.setState(stateStarting); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAlreadyRun, err)
	}

	p.cmd = exec.Command(p.binary, p.args...)
	setProcessGroup(p.cmd)

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return p.spawnFailed(err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return p.spawnFailed(err)
	}
	var stdin io.WriteCloser
	if p.stdin != nil {
		if stdin, err = p.cmd.StdinPipe(); err != nil {
			return p.spawnFailed(err)
		}
	}

	started := time.Now()
	if err := p.cmd.Start(); err != nil {
		return p.spawnFailed(err)
	}

	p.state.lock.Lock()
	p.pid = p.cmd.Process.Pid
	p.state.lock.Unlock()

	if err := p.monitor.Start(p.pid); err != nil {
		p.logger.Debug("can't monitor process %d: %v", p.pid, err)
	}
	p.setState(stateRunning)

	if p.timeout > 0 {
		p.killTimerLock.Lock()
		p.killTimer = time.AfterFunc(p.timeout, p.expire)
		p.killTimerLock.Unlock()
	}

	p.renice()

	if p.callbacks.onStart != nil {
		p.callbacks.onStart(p.pid)
	}

	var pumped chan struct{}
	if stdin != nil {
		pumped = make(chan struct{})
		go func() {
			defer close(pumped)
			p.pump(stdin)
		}()
	}

	var (
		wg     sync.WaitGroup
		out    bytes.Buffer
		errout strings.Builder
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.readStdout(stdout, &out)
	}()
	go func() {
		defer wg.Done()
		p.readStderr(stderr, &errout)
	}()
	p.waitReaders(&wg, stdout, stderr)

	waitErr := p.cmd.Wait()

	if c, ok := p.stdin.(io.Closer); ok {
		c.Close()
		<-pumped
	}

	p.killTimerLock.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
		p.killTimer = nil
	}
	p.killTimerLock.Unlock()
	p.monitor.Stop()

	result := Result{
		Stdout:   out.Bytes(),
		Stderr:   errout.String(),
		Duration: time.Since(started),
	}

	code := exitCode(waitErr)
	next := stateFinished
	if code != 0 {
		next = stateFailed
	}

	// The kill timer may already have moved the state to killed; in that
	// case the normal exit is not reported.
	if err := p.setState(next); err != nil {
		result.ExitCode = ExitTimeout
		result.Message = TimeoutMessage
		return result, ErrTimeout
	}

	result.ExitCode = code
	if code != 0 {
		if result.Message = LastLine(result.Stderr); result.Message == "" && waitErr != nil {
			result.Message = waitErr.Error()
		}
		return result, &ExitError{Code: code, Stderr: result.Stderr}
	}
	return result, nil
}

func (p *process) spawnFailed(err error) (Result, error) {
	p.setState(stateFailed)
	return Result{ExitCode: -1, Message: err.Error()}, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, p.binary, err)
}

// expire is run by the kill timer
func (p *process) expire() {
	if err := p.setState(stateKilled); err != nil {
		return
	}
	if err := killProcessGroup(p.cmd.Process); err != nil {
		p.logger.Debug("kill process %d: %v", p.pid, err)
	}
	close(p.killed)
	p.logger.Warn("process ran into a timeout (%s)", p.timeout)
}

// waitReaders waits for both output readers to hit EOF. After a kill the
// pipes are closed if a leftover descendant still holds them open.
func (p *process) waitReaders(wg *sync.WaitGroup, pipes ...io.Closer) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-p.killed:
	}

	grace := time.NewTimer(killGrace)
	defer grace.Stop()

	select {
	case <-done:
	case <-grace.C:
		p.logger.Debug("output of process %d still open after kill, closing", p.pid)
		for _, c := range pipes {
			c.Close()
		}
		<-done
	}
}

func (p *process) renice() {
	if p.nice == nil || runtime.GOOS == "windows" {
		return
	}
	level := strconv.Itoa(*p.nice)
	if *p.nice > 0 {
		level = "+" + level
	}
	out, err := exec.Command("renice", "-n", level, "-p", strconv.Itoa(p.pid)).CombinedOutput()
	if err != nil {
		p.logger.Warn("failed to renice process %d to %s: %v %s", p.pid, level, err, strings.TrimSpace(string(out)))
		return
	}
	p.logger.Info("successfully reniced process %d to %s niceness", p.pid, level)
}

func (p *process) pump(stdin io.WriteCloser) {
	defer stdin.Close()
	if _, err := io.Copy(stdin, p.stdin); err != nil {
		p.logger.Debug("stdin of process %d: %v", p.pid, err)
	}
}

func (p *process) readStdout(r io.Reader, acc *bytes.Buffer) {
	if p.stdout == nil {
		acc.ReadFrom(r)
		return
	}
	if _, err := io.Copy(p.stdout, r); err != nil {
		p.logger.Error("forward output of process %d: %v", p.pid, err)
		// keep draining so the process doesn't block on a full pipe
		io.Copy(io.Discard, r)
	}
}

func (p *process) readStderr(r io.Reader, acc *strings.Builder) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			p.parser.Parse(acc.String())
		}
		if err != nil {
			return
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Warn(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
