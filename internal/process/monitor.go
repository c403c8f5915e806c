// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package process

import (
	"sync"

	gopsutilprocess "github.com/shirou/gopsutil/v3/process"
)

// Monitor samples resource usage of a running process. nullMonitor does nothing.
type Monitor interface {
	Start(pid int) error
	Stop()
	Current() (cpu float64, memory uint64)
	Nice() (nice int32, ok bool)
}

type nullMonitor struct{}

// NewNullMonitor returns a no-op monitor
func NewNullMonitor() Monitor {
	return &nullMonitor{}
}

func (m *nullMonitor) Start(pid int) error        { return nil }
func (m *nullMonitor) Stop()                      {}
func (m *nullMonitor) Current() (float64, uint64) { return 0, 0 }
func (m *nullMonitor) Nice() (int32, bool)        { return 0, false }

// sysMonitor 使用 gopsutil 采集进程 CPU、内存和 nice 值
type sysMonitor struct {
	mu   sync.RWMutex
	proc *gopsutilprocess.Process
}

// NewSysMonitor creates a gopsutil backed monitor
func NewSysMonitor() Monitor {
	return &sysMonitor{}
}

func (m *sysMonitor) Start(pid int) error {
	proc, err := gopsutilprocess.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.proc = proc
	m.mu.Unlock()
	return nil
}

func (m *sysMonitor) Stop() {
	m.mu.Lock()
	m.proc = nil
	m.mu.Unlock()
}

func (m *sysMonitor) current() *gopsutilprocess.Process {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.proc
}

func (m *sysMonitor) Current() (cpu float64, memory uint64) {
	proc := m.current()
	if proc == nil {
		return 0, 0
	}
	if cpuPct, err := proc.CPUPercent(); err == nil {
		cpu = cpuPct
	}
	if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
		memory = memInfo.RSS
	}
	return cpu, memory
}

func (m *sysMonitor) Nice() (int32, bool) {
	proc := m.current()
	if proc == nil {
		return 0, false
	}
	nice, err := proc.Nice()
	if err != nil {
		return 0, false
	}
	return nice, true
}
