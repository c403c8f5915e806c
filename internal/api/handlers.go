// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/probe"
	"github.com/ZSC714725/mediaproc/internal/screenshot"
	"github.com/ZSC714725/mediaproc/internal/task"
)

// Defaults applied to requests that leave them out
type Defaults struct {
	Timeout time.Duration
	Nice    *int
	Folder  string
}

// Handler holds dependencies
type Handler struct {
	store    task.Store
	ffmpeg   ffmpeg.FFmpeg
	prober   probe.Prober
	defaults Defaults
}

// NewHandler creates API handler
func NewHandler(store task.Store, ff ffmpeg.FFmpeg, prober probe.Prober, defaults Defaults) *Handler {
	return &Handler{store: store, ffmpeg: ff, prober: prober, defaults: defaults}
}

// Register adds the routes to the group
func (h *Handler) Register(v3 *gin.RouterGroup) {
	v3.GET("/skills", h.Skills)
	v3.POST("/skills/reload", h.ReloadSkills)
	v3.GET("/probe", h.Probe)

	v3.POST("/transcode", h.AddTranscode)
	v3.POST("/screenshots", h.AddScreenshots)

	v3.GET("/jobs", h.ListJobs)
	v3.GET("/jobs/:id", h.GetJob)
	v3.GET("/jobs/:id/report", h.GetReport)
	v3.DELETE("/jobs/:id", h.DeleteJob)
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// storeError maps store and operation errors to a response
func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
	case errors.Is(err, task.ErrJobExists), errors.Is(err, task.ErrJobRunning):
		errResp(c, http.StatusConflict, "Job conflict", err.Error())
	case errors.Is(err, task.ErrInvalidInputAddress), errors.Is(err, task.ErrInvalidOutputAddress):
		errResp(c, http.StatusBadRequest, "Invalid address", err.Error())
	case errors.Is(err, task.ErrInvalidConfig), errors.Is(err, ffmpeg.ErrConfiguration):
		errResp(c, http.StatusBadRequest, "Invalid config", err.Error())
	default:
		errResp(c, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// AddTranscode POST /api/v3/transcode
func (h *Handler) AddTranscode(c *gin.Context) {
	var req TranscodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	if req.Format != "" {
		if s := h.ffmpeg.Skills(); len(s.Muxers) != 0 && !s.HasMuxer(req.Format) {
			errResp(c, http.StatusBadRequest, "Unknown format", req.Format)
			return
		}
	}

	o := h.requestToOptions(&req.OptionsRequest)
	o.OutputFile = req.Output

	j, err := h.store.Add(&task.Config{
		ID:        req.ID,
		Reference: req.Reference,
		Kind:      task.KindTranscode,
		Options:   o,
	})
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, jobToAPI(j))
}

// AddScreenshots POST /api/v3/screenshots
func (h *Handler) AddScreenshots(c *gin.Context) {
	var req ScreenshotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if req.Count <= 0 && len(req.Timemarks) == 0 {
		errResp(c, http.StatusBadRequest, "Either count or timemarks required", "")
		return
	}

	folder := req.Folder
	if folder == "" {
		folder = h.defaults.Folder
	}

	j, err := h.store.Add(&task.Config{
		ID:        req.ID,
		Reference: req.Reference,
		Kind:      task.KindScreenshots,
		Options:   h.requestToOptions(&req.OptionsRequest),
		Screenshots: screenshot.Request{
			Count:     req.Count,
			Timemarks: req.Timemarks,
			Filename:  req.Filename,
		},
		Folder: folder,
	})
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, jobToAPI(j))
}

// ListJobs GET /api/v3/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	reference := c.DefaultQuery("reference", "")

	jobs := h.store.List(reference)
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToAPI(j))
	}

	c.JSON(http.StatusOK, out)
}

// GetJob GET /api/v3/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.store.Get(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobToAPI(j))
}

// GetReport GET /api/v3/jobs/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	j, err := h.store.Get(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	r, ok := j.Report()
	if !ok {
		storeError(c, task.ErrJobRunning)
		return
	}

	report := JobReport{
		ID:        j.ID,
		State:     string(r.State),
		ExitCode:  r.ExitCode,
		Message:   r.Message,
		Metadata:  r.Metadata,
		Files:     r.Files,
		Finalized: r.Finalized,
	}
	if r.Error != nil {
		report.Error = r.Error.Error()
	}
	if r.FinalizeError != nil {
		report.FinalizeError = r.FinalizeError.Error()
	}

	report.Log = make([][2]string, len(r.Log))
	for i, line := range r.Log {
		report.Log[i] = [2]string{
			line.Timestamp.Format("2006-01-02 15:04:05.000"),
			line.Data,
		}
	}

	c.JSON(http.StatusOK, report)
}

// DeleteJob DELETE /api/v3/jobs/:id
func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// Probe GET /api/v3/probe?input=
func (h *Handler) Probe(c *gin.Context) {
	input := c.Query("input")
	if input == "" {
		errResp(c, http.StatusBadRequest, "Missing input", "")
		return
	}
	if !h.ffmpeg.ValidateInput(input) {
		storeError(c, task.ErrInvalidInputAddress)
		return
	}

	meta, err := h.prober.Probe(c.Request.Context(), input)
	if err != nil {
		errResp(c, http.StatusUnprocessableEntity, "Probe failed", err.Error())
		return
	}
	meta.Version = h.ffmpeg.Version()

	c.JSON(http.StatusOK, meta)
}

// Skills GET /api/v3/skills
func (h *Handler) Skills(c *gin.Context) {
	c.JSON(http.StatusOK, skillsToAPI(h.ffmpeg.Skills()))
}

// ReloadSkills POST /api/v3/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.ffmpeg.ReloadSkills(); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, skillsToAPI(h.ffmpeg.Skills()))
}

func (h *Handler) requestToOptions(req *OptionsRequest) *ffmpeg.Options {
	o := &ffmpeg.Options{
		InputFile:  req.Input,
		StartTime:  req.StartTime,
		Duration:   req.Duration,
		Format:     req.Format,
		Additional: req.Options,
		Timeout:    h.defaults.Timeout,
		Nice:       h.defaults.Nice,
		Video: ffmpeg.VideoOptions{
			Skip:            req.Video.Skip,
			Bitrate:         req.Video.Bitrate,
			ConstantBitrate: req.Video.ConstantBitrate,
			Codec:           req.Video.Codec,
			FPS:             req.Video.FPS,
			Aspect:          req.Video.Aspect,
			PadColor:        req.Video.PadColor,
			Size:            req.Video.Size,
		},
		Audio: ffmpeg.AudioOptions{
			Skip:      req.Audio.Skip,
			Bitrate:   req.Audio.Bitrate,
			Channels:  req.Audio.Channels,
			Codec:     req.Audio.Codec,
			Frequency: req.Audio.Frequency,
		},
		UpdateMetadata: req.UpdateMetadata,
	}

	if req.Video.Pad != nil {
		o.Video.Pad = &ffmpeg.Pad{W: req.Video.Pad.W, H: req.Video.Pad.H, X: req.Video.Pad.X, Y: req.Video.Pad.Y}
	}
	if req.TimeoutSeconds != nil {
		o.Timeout = time.Duration(*req.TimeoutSeconds) * time.Second
	}
	if req.Nice != nil {
		o.Nice = req.Nice
	}

	return o
}

func jobToAPI(j *task.Job) Job {
	out := Job{
		ID:        j.ID,
		Kind:      string(j.Kind),
		Reference: j.Reference,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt(),
		State:     string(j.State()),
		Progress:  j.Progress(),
		Codecs:    j.Codecs(),
		Files:     j.Files(),
	}

	if status, ok := j.Status(); ok {
		out.Process = &ProcessState{
			State:   status.State,
			Pid:     status.Pid,
			Runtime: int64(status.Duration.Seconds()),
			Memory:  status.Memory,
			CPU:     status.CPU,
			Nice:    status.Nice,
		}
	}

	return out
}
