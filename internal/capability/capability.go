// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

// Package capability caches whether optional helper tools are available.
// Entries are created lazily on first query and never invalidated.
package capability

import (
	"os/exec"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ProbeFunc reports whether the named tool is usable
type ProbeFunc func(name string) bool

// Cache maps tool names to their availability
type Cache struct {
	entries map[string]bool
	lock    sync.RWMutex
	group   singleflight.Group
}

// Default is the process-wide cache
var Default = New()

// New creates an empty cache
func New() *Cache {
	return &Cache{
		entries: map[string]bool{},
	}
}

// Get returns the cached flag and whether it is known
func (c *Cache) Get(name string) (available, known bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	available, known = c.entries[name]
	return
}

// Set records a flag. The first recorded value for a name wins.
func (c *Cache) Set(name string, available bool) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if v, ok := c.entries[name]; ok {
		return v
	}
	c.entries[name] = available
	return available
}

// Resolve returns the cached flag for name or runs probe once to find out.
// Concurrent callers for the same name share a single probe.
func (c *Cache) Resolve(name string, probe ProbeFunc) bool {
	if available, known := c.Get(name); known {
		return available
	}
	if probe == nil {
		probe = LookPath
	}

	v, _, _ := c.group.Do(name, func() (interface{}, error) {
		if available, known := c.Get(name); known {
			return available, nil
		}
		return c.Set(name, probe(name)), nil
	})

	return v.(bool)
}

// LookPath reports whether name resolves to an executable
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
