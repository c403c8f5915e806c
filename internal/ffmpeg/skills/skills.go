// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Codec represents a codec with encoders
type Codec struct {
	Id       string
	Name     string
	Encoders []string
}

// Format represents a muxer
type Format struct {
	Id   string
	Name string
}

// Library represents a linked av library
type Library struct {
	Name     string
	Compiled string
	Linked   string
}

// Info describes the binary itself
type Info struct {
	Version       string
	Compiler      string
	Configuration string
	Libraries     []Library
}

// Skills are the detected capabilities of the ffmpeg binary
type Skills struct {
	FFmpeg Info
	Codecs struct {
		Audio []Codec
		Video []Codec
	}
	Muxers []Format
}

// HasMuxer reports whether id is a known output format
func (s Skills) HasMuxer(id string) bool {
	for _, m := range s.Muxers {
		if m.Id == id {
			return true
		}
	}
	return false
}

var (
	reVersion       = regexp.MustCompile(`^ffmpeg version ([0-9]+\.[0-9]+(\.[0-9]+)?|N-[0-9A-Za-z\-]+)`)
	reCompiler      = regexp.MustCompile(`(?m)^\s*built with (.*)$`)
	reConfiguration = regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)
	reLibrary       = regexp.MustCompile(`(?m)^\s*(lib(?:[a-z]+))\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+) /\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+)`)
	reCodec         = regexp.MustCompile(`^\s[D.]([E.])([VAS]).{3} ([0-9A-Za-z_]+)\s+(.*?)(?:\(decoders:[^\)]+\))?\s?(?:\(encoders:([^\)]+)\))?$`)
	reMuxer         = regexp.MustCompile(`^\s[D ]E ([0-9A-Za-z_,]+)\s+(.*?)$`)
)

// New queries binary for its version, encoders and muxers
func New(binary string) (Skills, error) {
	s := Skills{}

	out, err := run(binary, "-version")
	if err != nil {
		return Skills{}, fmt.Errorf("can't run %s -version: %w", binary, err)
	}
	s.FFmpeg = parseVersion(out)
	if s.FFmpeg.Version == "" {
		return Skills{}, fmt.Errorf("can't parse ffmpeg version")
	}

	// older builds may lack a listing flag; missing lists are not fatal
	if out, err := run(binary, "-codecs"); err == nil {
		s.Codecs.Audio, s.Codecs.Video = parseCodecs(out)
	}
	if out, err := run(binary, "-formats"); err == nil {
		s.Muxers = parseMuxers(out)
	}

	return s, nil
}

func run(binary, flag string) ([]byte, error) {
	args := []string{flag}
	if flag != "-version" {
		args = append([]string{"-hide_banner"}, args...)
	}
	cmd := exec.Command(binary, args...)
	cmd.Env = []string{}
	return cmd.Output()
}

func parseVersion(data []byte) Info {
	f := Info{}
	if m := reVersion.FindSubmatch(data); m != nil {
		f.Version = string(m[1])
		if !bytes.HasPrefix(m[1], []byte("N-")) && len(m[2]) == 0 {
			f.Version += ".0"
		}
	}
	if m := reCompiler.FindSubmatch(data); m != nil {
		f.Compiler = string(m[1])
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		f.Configuration = string(m[1])
	}
	for _, m := range reLibrary.FindAllSubmatch(data, -1) {
		f.Libraries = append(f.Libraries, Library{
			Name:     string(m[1]),
			Compiled: string(m[2]),
			Linked:   string(m[3]),
		})
	}
	return f
}

func parseCodecs(data []byte) (audio, video []Codec) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reCodec.FindStringSubmatch(scanner.Text())
		if m == nil || m[1] != "E" {
			continue
		}
		c := Codec{Id: m[3], Name: strings.TrimSpace(m[4]), Encoders: []string{m[3]}}
		if enc := strings.TrimSpace(m[5]); enc != "" {
			c.Encoders = strings.Fields(enc)
		}
		switch m[2] {
		case "V":
			video = append(video, c)
		case "A":
			audio = append(audio, c)
		}
	}
	return audio, video
}

func parseMuxers(data []byte) []Format {
	var muxers []Format
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reMuxer.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		for _, id := range strings.Split(m[1], ",") {
			muxers = append(muxers, Format{Id: id, Name: m[2]})
		}
	}
	return muxers
}
