package semver

import (
	"fmt"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a crate version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version
}

// Constraint is a Cargo-style version requirement, e.g. "=1.2.3" or "^0.4".
type Constraint struct {
	raw string
	c   *mm.Constraints
}

func ParseVersion(raw string) (Version, error) {
	v, err := mm.StrictNewVersion(raw)
	if err != nil {
		// Cargo accepts a few shapes the strict parser does not, such as "1.0".
		v, err = mm.NewVersion(raw)
		if err != nil {
			return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
		}
	}
	return Version{v: v}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.v == nil
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Equal compares versions including pre-release and build metadata.
func (v Version) Equal(other Version) bool {
	return Compare(v, other) == 0 && v.String() == other.String()
}

// Pinned returns the requirement that selects exactly v.
func (v Version) Pinned() string {
	return "=" + v.String()
}

// Unpinned returns the default (caret) requirement for v, which lets the
// resolver choose any semver-compatible release.
func (v Version) Unpinned() string {
	return v.String()
}

func ParseConstraint(raw string) (Constraint, error) {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{raw: raw, c: c}, nil
}

func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Constraint) String() string {
	return c.raw
}

func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}
