package model

import (
	"encoding/json"
	"net/url"
	"strings"
)

// ParsedResult is the structure embedded in a succeeded record's resultJson.
type ParsedResult struct {
	ResultURLs []string `json:"resultUrls"`
}

// ArtifactKind classifies a displayable result reference.
type ArtifactKind string

const (
	ArtifactNone  ArtifactKind = "none"
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
)

// Artifact is a displayable media reference derived from a task result.
type Artifact struct {
	URL  string       `json:"url,omitempty"`
	Kind ArtifactKind `json:"kind"`
}

var videoExtensions = []string{".mp4", ".mov"}

// ExtractArtifact derives the displayable artifact from a resultJson payload.
// It is a pure function: a malformed or empty payload yields ArtifactNone,
// never an error.
func ExtractArtifact(resultJSON string) Artifact {
	if resultJSON == "" {
		return Artifact{Kind: ArtifactNone}
	}

	var parsed ParsedResult
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil {
		return Artifact{Kind: ArtifactNone}
	}
	if len(parsed.ResultURLs) == 0 || parsed.ResultURLs[0] == "" {
		return Artifact{Kind: ArtifactNone}
	}

	first := parsed.ResultURLs[0]
	kind := ArtifactImage
	if isVideoURL(first) {
		kind = ArtifactVideo
	}
	return Artifact{URL: first, Kind: kind}
}

func isVideoURL(raw string) bool {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.ToLower(path)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
