// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package main

import (
	"flag"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/mediaproc/internal/api"
	"github.com/ZSC714725/mediaproc/internal/capability"
	"github.com/ZSC714725/mediaproc/internal/config"
	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/finalize"
	"github.com/ZSC714725/mediaproc/internal/logger"
	"github.com/ZSC714725/mediaproc/internal/probe"
	"github.com/ZSC714725/mediaproc/internal/process"
	"github.com/ZSC714725/mediaproc/internal/task"
	"github.com/ZSC714725/mediaproc/internal/transcode"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	bind := flag.String("bind", "", "Bind address (overrides config)")
	ffmpegBin := flag.String("ffmpeg", "", "FFmpeg binary path (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.New("mediaproc").Error("load config: %v", err)
			os.Exit(1)
		}
	}

	bindAddr := cfg.Server.Bind
	if *bind != "" {
		bindAddr = *bind
	}
	ffmpegPath := cfg.FFmpeg.Path
	if *ffmpegBin != "" {
		ffmpegPath = *ffmpegBin
	}

	newLogger := func(component string) logger.Logger {
		return logger.NewWithConfig(component, logger.Config{Level: cfg.Log.Level})
	}
	log := newLogger("mediaproc")
	fatal := func(format string, args ...interface{}) {
		log.Error(format, args...)
		os.Exit(1)
	}

	validatorIn, err := ffmpeg.NewValidator(cfg.FFmpeg.Access.Input.Allow, cfg.FFmpeg.Access.Input.Block)
	if err != nil {
		fatal("input access rules: %v", err)
	}
	validatorOut, err := ffmpeg.NewValidator(cfg.FFmpeg.Access.Output.Allow, cfg.FFmpeg.Access.Output.Block)
	if err != nil {
		fatal("output access rules: %v", err)
	}

	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:          ffmpegPath,
		ValidatorInput:  validatorIn,
		ValidatorOutput: validatorOut,
	})
	if err != nil {
		fatal("ffmpeg init: %v", err)
	}
	log.Info("using %s (version %s)", ff.Binary(), ff.Version())

	timeout := time.Duration(cfg.Defaults.TimeoutSeconds) * time.Second

	finalizer := finalize.New(finalize.Config{
		Tool:    cfg.PostProcess.FLVTool,
		Cache:   capability.Default,
		Timeout: timeout,
		Logger:  newLogger("finalize"),
	})

	processor, err := transcode.New(transcode.Config{
		FFmpeg:    ff,
		Prober:    probe.NewFFprobe(cfg.FFmpeg.ProbePath),
		Finalizer: finalizer,
		Logger:    newLogger("transcode"),
		LogLines:  cfg.FFmpeg.LogLines,
		Monitor:   process.NewSysMonitor,
	})
	if err != nil {
		fatal("processor init: %v", err)
	}

	store := task.NewStore(processor, ff, newLogger("task"))
	handler := api.NewHandler(store, ff, probe.NewFFprobe(cfg.FFmpeg.ProbePath), api.Defaults{
		Timeout: timeout,
		Nice:    cfg.Defaults.Nice,
		Folder:  cfg.Screenshots.Folder,
	})

	r := gin.New()
	r.Use(gin.Recovery(), cors.Default())
	handler.Register(r.Group("/api/v3"))

	log.Info("MediaProc listening on %s", bindAddr)
	if err := r.Run(bindAddr); err != nil {
		fatal("server: %v", err)
	}
}
