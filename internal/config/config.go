// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
	Screenshots ScreenshotsConfig `yaml:"screenshots"`
	PostProcess PostProcessConfig `yaml:"postprocess"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind string `yaml:"bind"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path      string       `yaml:"path"`
	ProbePath string       `yaml:"probe_path"`
	LogLines  int          `yaml:"log_lines"`
	Access    AccessConfig `yaml:"access"`
}

// AccessConfig 输入输出地址的白名单和黑名单（正则）
type AccessConfig struct {
	Input  AccessRules `yaml:"input"`
	Output AccessRules `yaml:"output"`
}

// AccessRules allow/block 表达式
type AccessRules struct {
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`
}

// DefaultsConfig 任务默认值
type DefaultsConfig struct {
	TimeoutSeconds uint64 `yaml:"timeout_seconds"`
	Nice           *int   `yaml:"nice"`
}

// ScreenshotsConfig 截图配置
type ScreenshotsConfig struct {
	Folder string `yaml:"folder"`
}

// PostProcessConfig 后处理工具配置
type PostProcessConfig struct {
	FLVTool string `yaml:"flvtool"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server:      ServerConfig{Bind: ":8080"},
		FFmpeg:      FFmpegConfig{Path: "ffmpeg", ProbePath: "ffprobe", LogLines: 100},
		Screenshots: ScreenshotsConfig{Folder: "screenshots"},
		PostProcess: PostProcessConfig{FLVTool: "flvtool2"},
		Log:         LogConfig{Level: "info"},
	}
}

// Load 从 YAML 文件加载配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// 填充空值
	def := Default()
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = def.Server.Bind
	}
	if cfg.FFmpeg.Path == "" {
		cfg.FFmpeg.Path = def.FFmpeg.Path
	}
	if cfg.FFmpeg.ProbePath == "" {
		cfg.FFmpeg.ProbePath = def.FFmpeg.ProbePath
	}
	if cfg.FFmpeg.LogLines <= 0 {
		cfg.FFmpeg.LogLines = def.FFmpeg.LogLines
	}
	if cfg.Screenshots.Folder == "" {
		cfg.Screenshots.Folder = def.Screenshots.Folder
	}
	if cfg.PostProcess.FLVTool == "" {
		cfg.PostProcess.FLVTool = def.PostProcess.FLVTool
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}

	return cfg, nil
}
