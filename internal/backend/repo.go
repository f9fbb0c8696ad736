// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize trims s and converts it to Unicode NFC, so that a question
// typed with combining characters hits the same cache entry and index
// as its precomposed form.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// RepoName derives the repository name the backend uses for its index
// directory: trailing slashes and dots are dropped, then the last path
// element is taken without its extension.
//
//	https://github.com/user/repo.git -> repo
//	https://github.com/user/repo/    -> repo
func RepoName(repoURL string) string {
	s := strings.TrimRight(strings.TrimSpace(repoURL), "/.")
	if s == "" {
		return ""
	}
	base := path.Base(s)
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ValidateRepoURL checks that repoURL is an absolute http(s) URL with a host.
func ValidateRepoURL(repoURL string) error {
	s := Normalize(repoURL)
	if s == "" {
		return ErrEmptyRepoURL
	}
	u, err := url.Parse(s)
	if err != nil {
		return &ClientError{Type: ErrTypeValidation, Message: "invalid repository URL", Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ClientError{
			Type:    ErrTypeValidation,
			Message: fmt.Sprintf("repository URL must use http or https, got %q", u.Scheme),
		}
	}
	if u.Host == "" {
		return &ClientError{Type: ErrTypeValidation, Message: "repository URL has no host"}
	}
	if RepoName(s) == "" || strings.Trim(u.Path, "/.") == "" {
		return &ClientError{Type: ErrTypeValidation, Message: "repository URL has no repository path"}
	}
	return nil
}
