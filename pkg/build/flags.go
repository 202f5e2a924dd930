// SPDX-License-Identifier: MIT
//
// Package build exposes metadata linked into the binary at compile time:
//
//	go build -ldflags "-X polysynth/pkg/build.buildName=polysynth \
//	  -X polysynth/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds carry no ldflags; Initialize reports the first missing
// value and the "dev" defaults stay in place.
package build

import (
	"errors"
	"fmt"
)

const (
	defaultName        = "polysynth"
	defaultDescription = "Real-time polyphonic sawtooth synthesizer"
	unknown            = "dev"
)

// ErrMissingFlag is wrapped by Initialize when a required ldflag is absent.
var ErrMissingFlag = errors.New("missing build flag")

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders a one-line version banner.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// Initialize validates and copies the ldflags variables into the exported
// build information. On error the defaults are left untouched.
func Initialize() error {
	required := []struct {
		name  string
		value string
	}{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrMissingFlag, r.name)
		}
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
