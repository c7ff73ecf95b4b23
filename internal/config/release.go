package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Release is the version triple of an RDKit source tree, e.g. 2021_09_4.
type Release struct {
	Year  int
	Month int
	Patch int
}

var releasePattern = regexp.MustCompile(`^.+-[A-Za-z]+_(\d{4})_(\d{2})_(\d+)$`)

// ParseRelease derives the release triple from the final segment of path,
// which must look like "<name>-Release_YYYY_MM_P". Both slash styles are
// accepted so Windows paths parse the same on every host.
func ParseRelease(path string) (Release, error) {
	m := releasePattern.FindStringSubmatch(lastSegment(path))
	if m == nil {
		return Release{}, &ParseError{Path: path}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	patch, err := strconv.Atoi(m[3])
	if err != nil || month < 1 || month > 12 {
		return Release{}, &ParseError{Path: path}
	}
	return Release{Year: year, Month: month, Patch: patch}, nil
}

func lastSegment(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// String returns the release in RDKit's tag form, e.g. "2021_09_4".
func (r Release) String() string {
	return fmt.Sprintf("%04d_%02d_%d", r.Year, r.Month, r.Patch)
}

// Dotted returns the release as "2021.09.4".
func (r Release) Dotted() string {
	return fmt.Sprintf("%04d.%02d.%d", r.Year, r.Month, r.Patch)
}

func (r Release) semver() string {
	return fmt.Sprintf("v%d.%d.%d", r.Year, r.Month, r.Patch)
}

// AtLeast reports whether r is the release year_month_patch or newer.
func (r Release) AtLeast(year, month, patch int) bool {
	other := Release{Year: year, Month: month, Patch: patch}
	return semver.Compare(r.semver(), other.semver()) >= 0
}
