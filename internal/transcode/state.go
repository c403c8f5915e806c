// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package transcode

import (
	"fmt"
	"sync"
)

// State of an operation
type State string

const (
	StateIdle       State = "idle"
	StateProbing    State = "probing"
	StateBuilding   State = "building"
	StateRunning    State = "running"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// transitions lists the allowed successors of each state
var transitions = map[State][]State{
	StateIdle:       {StateProbing, StateFailed},
	StateProbing:    {StateBuilding, StateFailed},
	StateBuilding:   {StateRunning, StateFailed},
	StateRunning:    {StateFinalizing, StateDone, StateFailed},
	StateFinalizing: {StateDone},
}

// machine guards the state of a single operation
type machine struct {
	state    State
	lock     sync.Mutex
	onChange func(from, to State)
}

func newMachine(onChange func(from, to State)) *machine {
	return &machine{
		state:    StateIdle,
		onChange: onChange,
	}
}

func (m *machine) transition(to State) error {
	m.lock.Lock()

	from := m.state
	allowed := false
	for _, s := range transitions[from] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		m.lock.Unlock()
		return fmt.Errorf("can't change from %s to %s", from, to)
	}
	m.state = to
	m.lock.Unlock()

	if m.onChange != nil {
		m.onChange(from, to)
	}
	return nil
}

func (m *machine) current() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}
