package semver

import (
	"fmt"
	"sort"

	masterminds "github.com/Masterminds/semver/v3"
)

const resolverLogPrefix = "semver:resolver"

// DefaultVersion is assigned to bridges registered without a version.
const DefaultVersion = "1.0.0"

// ValidateVersion checks that version is a strict SemVer string.
func ValidateVersion(version string) error {
	if _, err := masterminds.StrictNewVersion(version); err != nil {
		return fmt.Errorf("%s - invalid version %q: %w", resolverLogPrefix, version, err)
	}
	return nil
}

// Satisfies reports whether version matches rangeStr. An empty range matches
// everything; a major-only range matches every version with that major.
func Satisfies(version, rangeStr string) (bool, error) {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("%s - invalid version %q: %w", resolverLogPrefix, version, err)
	}

	switch {
	case rangeStr == "":
		return true, nil
	case IsMajorOnly(rangeStr):
		return int(v.Major()) == ExtractMajorFromRange(rangeStr), nil
	case IsExactVersion(rangeStr):
		want, err := masterminds.NewVersion(rangeStr)
		if err != nil {
			return false, fmt.Errorf("%s - invalid version %q: %w", resolverLogPrefix, rangeStr, err)
		}
		return v.Equal(want), nil
	}

	c, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false, fmt.Errorf("%s - invalid range %q: %w", resolverLogPrefix, rangeStr, err)
	}
	return c.Check(v), nil
}

// HighestSatisfying returns the highest of versions matching rangeStr, or ""
// when none match. Invalid versions are skipped.
func HighestSatisfying(versions []string, rangeStr string) string {
	var matched []*masterminds.Version
	for _, s := range versions {
		ok, err := Satisfies(s, rangeStr)
		if err != nil || !ok {
			continue
		}
		v, _ := masterminds.NewVersion(s)
		matched = append(matched, v)
	}
	if len(matched) == 0 {
		return ""
	}
	sort.Sort(masterminds.Collection(matched))
	return matched[len(matched)-1].Original()
}
