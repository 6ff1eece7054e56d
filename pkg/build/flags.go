// SPDX-License-Identifier: MIT
//
// Package build carries version metadata embedded at link time:
//
//	go build -ldflags "-X micstream/pkg/build.buildVersion=v0.3.0 \
//	  -X micstream/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X micstream/pkg/build.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Development builds run with the defaults below.
package build

import (
	"fmt"
	"strings"
)

const (
	DefaultName        = "micstream"
	DefaultDescription = "Stream a microphone as raw PCM datagrams to a UDP receiver"
	unknown            = "unknown"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Set by -ldflags. buildName is optional.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// Initialize copies the link-time values into Get's result. It returns an
// error naming every missing value; the ones that were set are still
// applied, so callers may treat the error as a warning.
func Initialize() error {
	var missing []string
	apply := func(dst *string, v, flag string) {
		if v == "" {
			missing = append(missing, flag)
			return
		}
		*dst = v
	}

	if buildName != "" {
		buildInfo.Name = buildName
	}
	apply(&buildInfo.Time, buildTime, "buildTime")
	apply(&buildInfo.Commit, buildCommit, "buildCommit")
	apply(&buildInfo.Version, buildVersion, "buildVersion")

	if len(missing) > 0 {
		return fmt.Errorf("missing build flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the build information.
func Get() Info {
	return buildInfo
}
