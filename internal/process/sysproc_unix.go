// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the process as leader of its own group so a kill
// reaches every child it spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Signal(syscall.SIGKILL)
	}
	return nil
}
