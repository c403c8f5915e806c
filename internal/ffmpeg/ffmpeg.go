// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package ffmpeg

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/ZSC714725/mediaproc/internal/ffmpeg/skills"
	"github.com/ZSC714725/mediaproc/internal/process"
)

// FFmpeg manages the ffmpeg binary, its detected skills and address policy
type FFmpeg interface {
	Binary() string
	Version() string
	New(config process.Config) (process.Process, error)
	ValidateInput(address string) bool
	ValidateOutput(address string) bool
	Skills() skills.Skills
	ReloadSkills() error
}

// Config for FFmpeg
type Config struct {
	Binary          string
	ValidatorInput  Validator
	ValidatorOutput Validator
}

type ffmpeg struct {
	binary       string
	validatorIn  Validator
	validatorOut Validator
	skills       skills.Skills
	skillsLock   sync.RWMutex
}

// New resolves the binary and detects its skills
func New(config Config) (FFmpeg, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	f := &ffmpeg{
		binary:       binary,
		validatorIn:  config.ValidatorInput,
		validatorOut: config.ValidatorOutput,
	}

	if f.validatorIn == nil {
		f.validatorIn, _ = NewValidator(nil, nil)
	}
	if f.validatorOut == nil {
		f.validatorOut, _ = NewValidator(nil, nil)
	}

	s, err := skills.New(f.binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg: %w", err)
	}
	f.skills = s

	return f, nil
}

func (f *ffmpeg) Binary() string {
	return f.binary
}

func (f *ffmpeg) Version() string {
	return f.Skills().FFmpeg.Version
}

// New creates a process running this binary; config.Binary is overwritten.
func (f *ffmpeg) New(config process.Config) (process.Process, error) {
	config.Binary = f.binary
	return process.New(config)
}

func (f *ffmpeg) ValidateInput(address string) bool {
	return f.validatorIn.IsValid(address)
}

func (f *ffmpeg) ValidateOutput(address string) bool {
	return f.validatorOut.IsValid(address)
}

func (f *ffmpeg) Skills() skills.Skills {
	f.skillsLock.RLock()
	defer f.skillsLock.RUnlock()
	return f.skills
}

func (f *ffmpeg) ReloadSkills() error {
	s, err := skills.New(f.binary)
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	f.skillsLock.Lock()
	f.skills = s
	f.skillsLock.Unlock()
	return nil
}
