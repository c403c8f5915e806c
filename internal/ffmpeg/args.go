// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package ffmpeg

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZSC714725/mediaproc/internal/logger"
	"github.com/ZSC714725/mediaproc/internal/probe"
)

// StdoutTarget is appended to the arguments when writing to a stream.
const StdoutTarget = "pipe:1"

var reURI = regexp.MustCompile(`^[a-z]+://`)

// BuildArgs translates options into the ordered ffmpeg argument vector.
// ffmpeg is order sensitive: input options must precede -i and output
// options must precede the output target.
//
// A missing output file is only warned about unless overrideOutputCheck is
// set, so callers can still redirect to a pipe.
func BuildArgs(o *Options, meta probe.Metadata, overrideOutputCheck bool, log logger.Logger) ([]string, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	var args []string

	if o.StartTime != "" {
		args = append(args, "-ss", o.StartTime)
	}

	input, err := inputArgs(o)
	if err != nil {
		return nil, err
	}
	args = append(args, input...)

	if o.Duration != "" {
		args = append(args, "-t", o.Duration)
	}
	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}

	args = append(args, videoArgs(&o.Video)...)
	args = append(args, audioArgs(&o.Audio)...)
	args = append(args, o.Additional...)

	if o.Video.Pad != nil && !o.Video.Skip {
		if meta.Version == "" {
			return nil, fmt.Errorf("%w: padding needs a known ffmpeg version", ErrUnsupportedOption)
		}
		if !AtLeastVersion(meta.Version, MinPadVersion) {
			return nil, fmt.Errorf("%w: ffmpeg %s does not support padding", ErrUnsupportedOption, meta.Version)
		}
		color := o.Video.PadColor
		if color == "" {
			color = "black"
		}
		pad := o.Video.Pad
		args = append(args, "-vf", fmt.Sprintf("pad=%d:%d:%d:%d:%s", pad.W, pad.H, pad.X, pad.Y, color))
	}

	if o.Video.Size != "" && !o.Video.Skip {
		args = append(args, "-s", o.Video.Size)
	}

	if o.OutputFile != "" {
		args = append(args, "-y", escapeSpaces(o.OutputFile))
	} else if !overrideOutputCheck && log != nil {
		log.Warn("no outputfile specified")
	}

	return args, nil
}

// ScreenshotArgs builds the command that grabs a single frame at offset.
func ScreenshotArgs(input string, offset float64, size, target string) []string {
	return []string{
		"-ss", FormatSeconds(offset),
		"-i", input,
		"-vcodec", "mjpeg",
		"-vframes", "1",
		"-an",
		"-f", "rawvideo",
		"-s", size,
		"-y", target,
	}
}

// FormatSeconds renders seconds without trailing zeros
func FormatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// CheckInput verifies the input source the way BuildArgs does
func CheckInput(o *Options) error {
	_, err := inputArgs(o)
	return err
}

func inputArgs(o *Options) ([]string, error) {
	switch {
	case o.InputStream != nil:
		return []string{"-i", "-"}, nil
	case o.InputFile == "":
		return nil, fmt.Errorf("%w: no input specified", ErrConfiguration)
	case reURI.MatchString(o.InputFile):
		return []string{"-i", strings.ReplaceAll(o.InputFile, " ", "%20")}, nil
	}

	fi, err := os.Stat(o.InputFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputNotReadable, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInputNotReadable, o.InputFile)
	}
	return []string{"-i", o.InputFile}, nil
}

func videoArgs(v *VideoOptions) []string {
	if v.Skip {
		return []string{"-vn"}
	}

	var args []string
	if v.Bitrate > 0 {
		rate := strconv.Itoa(v.Bitrate) + "k"
		args = append(args, "-b", rate)
		if v.ConstantBitrate {
			args = append(args, "-maxrate", rate, "-minrate", rate, "-bufsize", "3M")
		}
	}
	if v.Codec != "" {
		args = append(args, "-vcodec", v.Codec)
	}
	if v.FPS > 0 {
		args = append(args, "-r", FormatSeconds(v.FPS))
	}
	if v.Aspect != "" {
		args = append(args, "-aspect", v.Aspect)
	}
	return args
}

func audioArgs(a *AudioOptions) []string {
	if a.Skip {
		return []string{"-an"}
	}

	var args []string
	if a.Bitrate > 0 {
		args = append(args, "-ab", strconv.Itoa(a.Bitrate)+"k")
	}
	if a.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(a.Channels))
	}
	if a.Codec != "" {
		args = append(args, "-acodec", a.Codec)
	}
	if a.Frequency > 0 {
		args = append(args, "-ar", strconv.Itoa(a.Frequency))
	}
	return args
}

func escapeSpaces(path string) string {
	return strings.ReplaceAll(path, " ", `\ `)
}
