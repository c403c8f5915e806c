// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
	"github.com/ZSC714725/mediaproc/internal/ffmpeg/parse"
	"github.com/ZSC714725/mediaproc/internal/ffmpeg/skills"
	"github.com/ZSC714725/mediaproc/internal/probe"
	"github.com/ZSC714725/mediaproc/internal/process"
	"github.com/ZSC714725/mediaproc/internal/screenshot"
	"github.com/ZSC714725/mediaproc/internal/task"
	"github.com/ZSC714725/mediaproc/internal/transcode"
)

type fakeFFmpeg struct {
	reloads int
}

func (f *fakeFFmpeg) Binary() string  { return "/usr/bin/ffmpeg" }
func (f *fakeFFmpeg) Version() string { return "6.1.1" }
func (f *fakeFFmpeg) New(config process.Config) (process.Process, error) {
	return nil, errors.New("not spawning in tests")
}
func (f *fakeFFmpeg) ValidateInput(address string) bool  { return !strings.Contains(address, "secret") }
func (f *fakeFFmpeg) ValidateOutput(address string) bool { return !strings.HasPrefix(address, "/etc") }
func (f *fakeFFmpeg) ReloadSkills() error                { f.reloads++; return nil }
func (f *fakeFFmpeg) Skills() skills.Skills {
	s := skills.Skills{}
	s.FFmpeg.Version = "6.1.1"
	s.Codecs.Video = []skills.Codec{{Id: "h264", Name: "H.264", Encoders: []string{"libx264"}}}
	s.Muxers = []skills.Format{{Id: "flv", Name: "FLV (Flash Video)"}}
	return s
}

type fakeProber struct{}

func (fakeProber) Probe(ctx context.Context, input string) (probe.Metadata, error) {
	if strings.HasSuffix(input, ".broken") {
		return probe.Metadata{}, probe.ErrProbeFailed
	}
	return probe.Metadata{DurationSeconds: 42, Format: "avi"}, nil
}

type fakeRunner struct {
	release  chan struct{}
	options  []*ffmpeg.Options
	requests []screenshot.Request
	folders  []string
}

func (r *fakeRunner) SaveToFile(ctx context.Context, o *ffmpeg.Options, target string, obs transcode.Observers) (transcode.Result, error) {
	r.options = append(r.options, o)
	obs.OnStateChange(transcode.StateIdle, transcode.StateRunning)
	obs.OnProgress(parse.Progress{Frames: 5, Timemark: "00:00:00.20"})
	<-r.release
	obs.OnStateChange(transcode.StateRunning, transcode.StateDone)
	return transcode.Result{
		Result: process.Result{ExitCode: 0},
		Log:    []process.Line{{Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Data: "Press [q] to stop"}},
	}, nil
}

func (r *fakeRunner) TakeScreenshots(ctx context.Context, o *ffmpeg.Options, req screenshot.Request, folder string, obs transcode.Observers) ([]string, error) {
	r.options = append(r.options, o)
	r.requests = append(r.requests, req)
	r.folders = append(r.folders, folder)
	obs.OnStateChange(transcode.StateIdle, transcode.StateFailed)
	return []string{"tn_1.jpg"}, ffmpeg.ErrNoDuration
}

func newRouter(t *testing.T) (*gin.Engine, *fakeRunner, task.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	runner := &fakeRunner{release: make(chan struct{})}
	ff := &fakeFFmpeg{}
	store := task.NewStore(runner, ff, nil)
	nice := 10
	h := NewHandler(store, ff, fakeProber{}, Defaults{Timeout: time.Minute, Nice: &nice, Folder: "shots"})

	r := gin.New()
	h.Register(r.Group("/api/v3"))
	return r, runner, store
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func waitDone(t *testing.T, store task.Store, id string) {
	t.Helper()
	j, err := store.Get(id)
	require.NoError(t, err)
	select {
	case <-j.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
}

func TestTranscodeLifecycle(t *testing.T) {
	r, runner, store := newRouter(t)

	w := do(r, http.MethodPost, "/api/v3/transcode", map[string]interface{}{
		"id":              "job1",
		"reference":       "movies",
		"input":           "/media/in.avi",
		"output":          "/media/out.flv",
		"format":          "flv",
		"video":           map[string]interface{}{"bitrate_kbit": 800, "constant_bitrate": true, "pad": map[string]int{"w": 640, "h": 480}},
		"audio":           map[string]interface{}{"codec": "aac", "channels": 2},
		"timeout_seconds": 30,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var job Job
	decode(t, w, &job)
	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "transcode", job.Kind)

	w = do(r, http.MethodGet, "/api/v3/jobs/job1/report", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(r, http.MethodDelete, "/api/v3/jobs/job1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, "/api/v3/jobs/job1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	close(runner.release)
	waitDone(t, store, "job1")

	require.Len(t, runner.options, 1)
	o := runner.options[0]
	assert.Equal(t, "/media/in.avi", o.InputFile)
	assert.Equal(t, "/media/out.flv", o.OutputFile)
	assert.Equal(t, 30*time.Second, o.Timeout)
	require.NotNil(t, o.Nice)
	assert.Equal(t, 10, *o.Nice)
	assert.True(t, o.Video.ConstantBitrate)
	assert.Equal(t, &ffmpeg.Pad{W: 640, H: 480}, o.Video.Pad)
	assert.Equal(t, 2, o.Audio.Channels)

	w = do(r, http.MethodGet, "/api/v3/jobs/job1", nil)
	decode(t, w, &job)
	assert.Equal(t, "done", job.State)
	require.NotNil(t, job.Progress)
	assert.Equal(t, uint64(5), job.Progress.Frames)

	w = do(r, http.MethodGet, "/api/v3/jobs/job1/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report JobReport
	decode(t, w, &report)
	assert.Equal(t, "done", report.State)
	assert.Equal(t, [][2]string{{"2026-01-02 03:04:05.000", "Press [q] to stop"}}, report.Log)

	w = do(r, http.MethodGet, "/api/v3/jobs?reference=movies", nil)
	var jobs []Job
	decode(t, w, &jobs)
	assert.Len(t, jobs, 1)

	w = do(r, http.MethodDelete, "/api/v3/jobs/job1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/api/v3/jobs/job1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranscodeRejectsBadRequests(t *testing.T) {
	r, _, _ := newRouter(t)

	w := do(r, http.MethodPost, "/api/v3/transcode", map[string]string{"input": "/media/in.avi"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "output is required")

	w = do(r, http.MethodPost, "/api/v3/transcode", map[string]string{"input": "/secret/in.avi", "output": "/media/out.mp4"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "Invalid address", resp.Message)

	w = do(r, http.MethodPost, "/api/v3/transcode", map[string]string{"input": "/media/in.avi", "output": "/etc/out.mp4"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v3/transcode", map[string]string{"input": "/media/in.avi", "output": "/media/out.xyz", "format": "xyz"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Unknown format", resp.Message)
}

func TestScreenshots(t *testing.T) {
	r, runner, store := newRouter(t)

	w := do(r, http.MethodPost, "/api/v3/screenshots", map[string]interface{}{"input": "/media/in.avi"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "count or timemarks required")

	w = do(r, http.MethodPost, "/api/v3/screenshots", map[string]interface{}{
		"id":        "shots",
		"input":     "/media/in.avi",
		"video":     map[string]string{"size": "320x240"},
		"timemarks": []string{"10", "50%"},
		"filename":  "%b_%i",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	waitDone(t, store, "shots")

	assert.Equal(t, []string{"shots"}, runner.folders, "default folder")
	assert.Equal(t, screenshot.Request{Timemarks: []string{"10", "50%"}, Filename: "%b_%i"}, runner.requests[0])

	w = do(r, http.MethodGet, "/api/v3/jobs/shots/report", nil)
	var report JobReport
	decode(t, w, &report)
	assert.Equal(t, "failed", report.State)
	assert.Equal(t, []string{"tn_1.jpg"}, report.Files)
	assert.Contains(t, report.Error, "duration")
}

func TestProbe(t *testing.T) {
	r, _, _ := newRouter(t)

	w := do(r, http.MethodGet, "/api/v3/probe?input=/media/in.avi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var meta probe.Metadata
	decode(t, w, &meta)
	assert.Equal(t, 42.0, meta.DurationSeconds)
	assert.Equal(t, "6.1.1", meta.Version)

	w = do(r, http.MethodGet, "/api/v3/probe?input=/media/in.broken", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodGet, "/api/v3/probe?input=/secret/in.avi", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v3/probe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSkills(t *testing.T) {
	r, _, _ := newRouter(t)

	w := do(r, http.MethodGet, "/api/v3/skills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp SkillsResponse
	decode(t, w, &resp)
	assert.Equal(t, "6.1.1", resp.FFmpeg.Version)
	assert.Equal(t, []SkillsCodec{{ID: "h264", Name: "H.264", Encoders: []string{"libx264"}}}, resp.Codecs.Video)
	assert.Equal(t, []SkillsFormat{{ID: "flv", Name: "FLV (Flash Video)"}}, resp.Muxers)

	w = do(r, http.MethodPost, "/api/v3/skills/reload", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
