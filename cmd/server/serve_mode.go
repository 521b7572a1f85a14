package main

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidServeMode is returned for SERVE_MODE values other than monolith, web or api.
var ErrInvalidServeMode = errors.New("invalid serve mode")

// ServeMode selects which HTTP surfaces a process exposes.
type ServeMode string

const (
	// ServeModeMonolith serves the Google login, the print page and the JSON API from one process.
	ServeModeMonolith ServeMode = "monolith"
	// ServeModeWeb serves the Google login and the print page only.
	ServeModeWeb ServeMode = "web"
	// ServeModeAPI serves the JSON API and the PDF download only.
	ServeModeAPI ServeMode = "api"
)

type serveModeSurfaces struct {
	web bool
	api bool
}

var surfacesByServeMode = map[ServeMode]serveModeSurfaces{
	ServeModeMonolith: {web: true, api: true},
	ServeModeWeb:      {web: true},
	ServeModeAPI:      {api: true},
}

// ParseServeMode accepts a case-insensitive mode name. Blank input means monolith.
func ParseServeMode(rawInput string) (ServeMode, error) {
	candidate := ServeMode(strings.ToLower(strings.TrimSpace(rawInput)))
	if candidate == "" {
		return ServeModeMonolith, nil
	}
	if _, known := surfacesByServeMode[candidate]; !known {
		return "", fmt.Errorf("%w: %q", ErrInvalidServeMode, rawInput)
	}
	return candidate, nil
}

func (mode ServeMode) servesWeb() bool {
	return surfacesByServeMode[mode].web
}

func (mode ServeMode) servesAPI() bool {
	return surfacesByServeMode[mode].api
}
