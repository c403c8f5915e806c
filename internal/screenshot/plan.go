// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package screenshot

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZSC714725/mediaproc/internal/ffmpeg"
)

// DefaultFilename is used when a request carries no template
const DefaultFilename = "tn_%ss"

// usable share of the input; the tail usually fades out
const window = 0.9

var reIndex = regexp.MustCompile(`%(0*)i`)

// Request describes a screenshot batch. Either Count evenly spaced shots, or
// explicit Timemarks (seconds or "N%" of the duration).
type Request struct {
	Count     int      `json:"count"`
	Timemarks []string `json:"timemarks,omitempty"`
	// Filename template. Placeholders: %i (index, %0i, %00i... zero padded),
	// %s offset, %w width, %h height, %r WxH, %f input file name, %b input
	// file name without extension. Directories are stripped so every file
	// lands in the target folder.
	Filename string `json:"filename,omitempty"`
}

// Task is one single-frame extraction
type Task struct {
	Index    int     `json:"index"`
	Offset   float64 `json:"offset"`
	Filename string  `json:"filename"`
}

// Plan computes the offsets and filenames of a batch
func Plan(o *ffmpeg.Options, duration float64, req Request) ([]Task, error) {
	if duration <= 0 {
		return nil, ErrNoDuration
	}

	var offsets []float64
	if len(req.Timemarks) > 0 {
		marks, err := timemarks(req.Timemarks, duration)
		if err != nil {
			return nil, err
		}
		offsets = marks
		if req.Count > 0 && req.Count < len(offsets) {
			offsets = offsets[:req.Count]
		}
	} else {
		if req.Count <= 0 {
			return nil, fmt.Errorf("%w: screenshot count must be positive", ffmpeg.ErrConfiguration)
		}
		step := duration * window / float64(req.Count)
		for j := 1; j <= req.Count; j++ {
			offsets = append(offsets, round(step*float64(j)))
		}
	}

	template := req.Filename
	if template == "" {
		template = DefaultFilename
	}
	if !reIndex.MatchString(template) && (len(req.Timemarks) > 1 || (len(req.Timemarks) == 0 && req.Count > 1)) {
		template += "_%i"
	}

	tasks := make([]Task, 0, len(offsets))
	for i, offset := range offsets {
		tasks = append(tasks, Task{
			Index:    i + 1,
			Offset:   offset,
			Filename: render(template, i+1, offset, o) + ".jpg",
		})
	}
	return tasks, nil
}

// timemarks converts marks to seconds, dropping those past the usable window.
// An emptied list is replaced by a single mark at the window end.
func timemarks(marks []string, duration float64) ([]float64, error) {
	limit := duration * window
	offsets := make([]float64, 0, len(marks))

	for _, mark := range marks {
		mark = strings.TrimSpace(mark)
		var secs float64
		if pct, ok := strings.CutSuffix(mark, "%"); ok {
			x, err := strconv.ParseFloat(pct, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid timemark %q", ffmpeg.ErrConfiguration, mark)
			}
			secs = x / 100 * duration
		} else {
			x, err := strconv.ParseFloat(mark, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid timemark %q", ffmpeg.ErrConfiguration, mark)
			}
			secs = x
		}
		if secs < 0 {
			return nil, fmt.Errorf("%w: negative timemark %q", ffmpeg.ErrConfiguration, mark)
		}
		if secs > limit {
			continue
		}
		offsets = append(offsets, round(secs))
	}

	if len(offsets) == 0 {
		offsets = append(offsets, round(limit))
	}
	return offsets, nil
}

func render(template string, index int, offset float64, o *ffmpeg.Options) string {
	name := reIndex.ReplaceAllStringFunc(template, func(m string) string {
		width := len(m) - 1 // the zeros plus one digit
		return fmt.Sprintf("%0*d", width, index)
	})

	w, h, _ := o.Dimensions()
	input := filepath.Base(o.InputFile)

	r := strings.NewReplacer(
		"%s", ffmpeg.FormatSeconds(offset),
		"%w", strconv.Itoa(w),
		"%h", strconv.Itoa(h),
		"%r", fmt.Sprintf("%dx%d", w, h),
		"%f", input,
		"%b", strings.TrimSuffix(input, filepath.Ext(input)),
	)
	return r.Replace(name)
}

// round to milliseconds, enough for a seek and stable in filenames
func round(secs float64) float64 {
	return math.Round(secs*1000) / 1000
}
