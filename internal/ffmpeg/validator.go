// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package ffmpeg

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Validator decides whether an address may be used as input or output.
type Validator interface {
	IsValid(address string) bool
}

type validator struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// NewValidator compiles allow and block expressions. Empty expressions are
// ignored. Block wins over allow; an empty allow list allows everything.
func NewValidator(allow, block []string) (Validator, error) {
	var err error
	v := &validator{}
	if v.allow, err = compileAll("allow", allow); err != nil {
		return nil, err
	}
	if v.block, err = compileAll("block", block); err != nil {
		return nil, err
	}
	return v, nil
}

func compileAll(kind string, exps []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, exp := range exps {
		exp = strings.TrimSpace(exp)
		if exp == "" {
			continue
		}
		re, err := regexp.Compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid %s expression '%s': %w", kind, exp, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// IsValid matches the address as given and in its normalized form. A block
// expression matching either rejects it; allow expressions must match the
// normalized form, so "/media/../etc" is not under "^/media/".
func (v *validator) IsValid(address string) bool {
	normalized := normalizeAddress(address)

	for _, e := range v.block {
		if e.MatchString(address) || e.MatchString(normalized) {
			return false
		}
	}
	if len(v.allow) == 0 {
		return true
	}
	for _, e := range v.allow {
		if e.MatchString(normalized) {
			return true
		}
	}
	return false
}

// normalizeAddress cleans local paths and unescapes the path of URIs.
// Stream markers ("-", "pipe:N") are returned unchanged.
func normalizeAddress(address string) string {
	if address == "-" || strings.HasPrefix(address, "pipe:") {
		return address
	}

	if u, err := url.Parse(address); err == nil && len(u.Scheme) > 1 {
		if unescaped, err := url.PathUnescape(u.EscapedPath()); err == nil {
			u.Path = path.Clean("/" + unescaped)
			u.RawPath = ""
		}
		return u.Scheme + "://" + u.Host + u.Path
	}

	return filepath.Clean(address)
}
