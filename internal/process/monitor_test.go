// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package process

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSysMonitorSamplesOwnProcess(t *testing.T) {
	m := NewSysMonitor()
	require.NoError(t, m.Start(os.Getpid()))

	_, memory := m.Current()
	assert.NotZero(t, memory)

	m.Stop()
	cpu, memory := m.Current()
	assert.Zero(t, cpu)
	assert.Zero(t, memory)
	_, ok := m.Nice()
	assert.False(t, ok)
}

func TestNullMonitor(t *testing.T) {
	m := NewNullMonitor()
	assert.NoError(t, m.Start(1))
	cpu, memory := m.Current()
	assert.Zero(t, cpu)
	assert.Zero(t, memory)
}
