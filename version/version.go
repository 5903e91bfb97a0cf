// Package version carries the release and API versions of udiscovery.
package version

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
)

var (
	// MinAPIVersion is the lowest API version clients may speak.
	MinAPIVersion = "3.0.0"
	Version       = "3.1.0+git"
	APIVersion    = "unknown"

	// Git SHA Value will be set during build
	GitSHA = "Not provided (use ./build instead of go build)"
)

func init() {
	ver, err := semver.NewVersion(Version)
	if err == nil {
		APIVersion = fmt.Sprintf("%d.%d", ver.Major, ver.Minor)
	}
}

type Versions struct {
	Server string `json:"udiscoveryserver"`
	API    string `json:"udiscoveryapi"`
}

// Get returns the running versions.
func Get() Versions {
	return Versions{Server: Version, API: APIVersion}
}

// API only keeps the major.minor.
func API(v string) string {
	vs := strings.Split(v, ".")
	if len(vs) <= 2 {
		return v
	}
	return fmt.Sprintf("%s.%s", vs[0], vs[1])
}

// Compatible reports whether a client speaking API version v is served.
func Compatible(v string) bool {
	cv, err := semver.NewVersion(normalize(v))
	if err != nil {
		return false
	}
	minv := semver.New(MinAPIVersion)
	server := semver.New(normalize(APIVersion))
	return !cv.LessThan(*minv) && !server.LessThan(*cv)
}

func normalize(v string) string {
	if strings.Count(v, ".") == 1 {
		return v + ".0"
	}
	return v
}
