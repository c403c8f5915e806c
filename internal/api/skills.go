// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package api

import (
	"github.com/ZSC714725/mediaproc/internal/ffmpeg/skills"
)

// SkillsResponse for API
type SkillsResponse struct {
	FFmpeg struct {
		Version       string          `json:"version"`
		Compiler      string          `json:"compiler"`
		Configuration string          `json:"configuration"`
		Libraries     []SkillsLibrary `json:"libraries"`
	} `json:"ffmpeg"`

	Codecs struct {
		Audio []SkillsCodec `json:"audio"`
		Video []SkillsCodec `json:"video"`
	} `json:"codecs"`

	Muxers []SkillsFormat `json:"muxers"`
}

type SkillsLibrary struct {
	Name     string `json:"name"`
	Compiled string `json:"compiled"`
	Linked   string `json:"linked"`
}

type SkillsCodec struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Encoders []string `json:"encoders"`
}

type SkillsFormat struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func skillsToAPI(s skills.Skills) SkillsResponse {
	resp := SkillsResponse{}

	resp.FFmpeg.Version = s.FFmpeg.Version
	resp.FFmpeg.Compiler = s.FFmpeg.Compiler
	resp.FFmpeg.Configuration = s.FFmpeg.Configuration
	resp.FFmpeg.Libraries = make([]SkillsLibrary, len(s.FFmpeg.Libraries))
	for i, lib := range s.FFmpeg.Libraries {
		resp.FFmpeg.Libraries[i] = SkillsLibrary{Name: lib.Name, Compiled: lib.Compiled, Linked: lib.Linked}
	}

	resp.Codecs.Audio = codecsToAPI(s.Codecs.Audio)
	resp.Codecs.Video = codecsToAPI(s.Codecs.Video)

	resp.Muxers = make([]SkillsFormat, len(s.Muxers))
	for i, f := range s.Muxers {
		resp.Muxers[i] = SkillsFormat{ID: f.Id, Name: f.Name}
	}

	return resp
}

func codecsToAPI(codecs []skills.Codec) []SkillsCodec {
	out := make([]SkillsCodec, len(codecs))
	for i, c := range codecs {
		out[i] = SkillsCodec{ID: c.Id, Name: c.Name, Encoders: c.Encoders}
	}
	return out
}
