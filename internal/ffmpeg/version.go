// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package ffmpeg

import (
	"regexp"

	"golang.org/x/mod/semver"
)

// MinPadVersion is the first ffmpeg release with the pad video filter.
const MinPadVersion = "0.7"

var (
	reNumericVersion  = regexp.MustCompile(`^v?([0-9]+)(?:\.([0-9]+))?(?:\.([0-9]+))?`)
	reSnapshotVersion = regexp.MustCompile(`^N-[0-9]+`)
)

// AtLeastVersion compares dotted numeric versions. Git snapshot builds
// ("N-113245-g...") count as current; any other unparseable or empty
// version satisfies no requirement.
func AtLeastVersion(actual, required string) bool {
	a, ok := canonicalVersion(actual)
	if !ok {
		return reSnapshotVersion.MatchString(actual)
	}
	r, ok := canonicalVersion(required)
	if !ok {
		return true
	}
	return semver.Compare(a, r) >= 0
}

func canonicalVersion(v string) (string, bool) {
	m := reNumericVersion.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}
	parts := []string{m[1], m[2], m[3]}
	for i := range parts {
		if parts[i] == "" {
			parts[i] = "0"
		}
	}
	c := "v" + trimZeros(parts[0]) + "." + trimZeros(parts[1]) + "." + trimZeros(parts[2])
	return c, semver.IsValid(c)
}

// semver rejects leading zeros in numeric identifiers
func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
