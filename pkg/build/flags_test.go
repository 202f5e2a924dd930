// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = *buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "BuildName is required"},
		{"Missing BuildTime", "polysynth", "", "abcdef123", "v1.0.0", "BuildTime is required"},
		{"Missing BuildCommit", "polysynth", "2025-04-13", "", "v1.0.0", "BuildCommit is required"},
		{"Missing BuildVersion", "polysynth", "2025-04-13", "abcdef123", "", "BuildVersion is required"},
		{"Success Case", "polysynth", "2025-04-13", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = defaultFlags()

			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil {
					t.Fatal("Initialize() expected error, got nil")
				}
				if !errors.Is(err, ErrMissingFlag) {
					t.Errorf("Initialize() error = %v, want wrapped ErrMissingFlag", err)
				}
				if !strings.Contains(err.Error(), tt.wantErrMsg) {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				if buildFlags.Version != unknown {
					t.Errorf("defaults overwritten on error: %+v", buildFlags)
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			if buildFlags.Name != tt.buildName {
				t.Errorf("buildFlags.Name = %v, want %v", buildFlags.Name, tt.buildName)
			}
			if buildFlags.Version != tt.buildVer {
				t.Errorf("buildFlags.Version = %v, want %v", buildFlags.Version, tt.buildVer)
			}
			if buildFlags.Description != defaultDescription {
				t.Errorf("buildFlags.Description = %v, want %v", buildFlags.Description, defaultDescription)
			}
		})
	}
}

func TestBuildFlagsString(t *testing.T) {
	buildFlags = &ldFlags{Name: "polysynth", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"}

	want := "polysynth v1.0.0 (commit abcdef123, built 2025-04-13)"
	if got := GetBuildFlags().String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
