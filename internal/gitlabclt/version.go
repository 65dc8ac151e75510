package gitlabclt

import (
	"fmt"
	"strconv"
	"strings"
)

// Version describes the release of a GitLab installation.
type Version struct {
	Release [3]int
	Edition string
}

// ParseVersion parses a version string as returned by the GitLab version
// endpoint, e.g. "15.11.2-ee".
func ParseVersion(s string) (*Version, error) {
	release, edition, _ := strings.Cut(s, "-")

	parts := strings.Split(release, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return nil, fmt.Errorf("expecting 1-3 dot-separated version numbers, got %d", len(parts))
	}

	version := Version{Edition: edition}
	for i, part := range parts {
		nr, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("version element %q is not a number: %w", part, err)
		}

		version.Release[i] = nr
	}

	return &version, nil
}

// AtLeast returns true when the version is the same or newer than the passed
// release.
func (v *Version) AtLeast(major, minor, patch int) bool {
	for i, nr := range []int{major, minor, patch} {
		if v.Release[i] != nr {
			return v.Release[i] > nr
		}
	}

	return true
}

// IsEE returns true when the installation runs the enterprise edition.
func (v *Version) IsEE() bool {
	return v.Edition == "ee"
}

func (v *Version) String() string {
	result := fmt.Sprintf("%d.%d.%d", v.Release[0], v.Release[1], v.Release[2])
	if v.Edition != "" {
		result += "-" + v.Edition
	}

	return result
}
