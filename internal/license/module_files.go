package license

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Type is the license category recorded in METADATA.
type Type string

const (
	TypeUnencumbered Type = "UNENCUMBERED"
	TypePermissive   Type = "PERMISSIVE"
	TypeNotice       Type = "NOTICE"
	TypeReciprocal   Type = "RECIPROCAL"
	TypeRestricted   Type = "RESTRICTED"
)

var typeRank = map[Type]int{
	TypeUnencumbered: 0,
	TypePermissive:   1,
	TypeNotice:       2,
	TypeReciprocal:   3,
	TypeRestricted:   4,
}

// TypeOf classifies a single license identifier.
func TypeOf(id string) Type {
	switch {
	case strings.HasPrefix(id, "GPL"), strings.HasPrefix(id, "LGPL"), strings.HasPrefix(id, "AGPL"):
		return TypeRestricted
	case strings.HasPrefix(id, "MPL"), strings.HasPrefix(id, "EPL"), strings.HasPrefix(id, "CDDL"):
		return TypeReciprocal
	case id == "Unlicense", id == "CC0-1.0", id == "0BSD":
		return TypeUnencumbered
	default:
		return TypeNotice
	}
}

// MostRestrictiveType returns the most restrictive category among the
// satisfied licenses, NOTICE when nothing is satisfied.
func MostRestrictiveType(st State) Type {
	if len(st.Satisfied) == 0 {
		return TypeNotice
	}
	best := TypeUnencumbered
	for id := range st.Satisfied {
		if t := TypeOf(id); typeRank[t] > typeRank[best] {
			best = t
		}
	}
	return best
}

// moduleLicenseSuffix maps identifiers to MODULE_LICENSE_* file suffixes.
var moduleLicenseSuffix = map[string]string{
	"Apache-2.0":       "APACHE2",
	"MIT":              "MIT",
	"BSD-2-Clause":     "BSD_LIKE",
	"BSD-3-Clause":     "BSD_LIKE",
	"0BSD":             "BSD_LIKE",
	"ISC":              "ISC",
	"Zlib":             "ZLIB",
	"MPL-2.0":          "MPL",
	"BSL-1.0":          "BOOST",
	"Unicode-DFS-2016": "UNICODE",
	"Unicode-3.0":      "UNICODE",
	"Unlicense":        "UNLICENSE",
	"CC0-1.0":          "CC0",
}

// ModuleLicenseFile returns the marker file name for a license identifier.
func ModuleLicenseFile(id string) string {
	suffix, ok := moduleLicenseSuffix[id]
	if !ok {
		suffix = strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id))
	}
	return "MODULE_LICENSE_" + suffix
}

// UpdateModuleLicenseFiles makes the set of empty MODULE_LICENSE_* files in
// dir match the satisfied licenses in st.
func UpdateModuleLicenseFiles(dir string, st State) error {
	want := map[string]struct{}{}
	for id := range st.Satisfied {
		want[ModuleLicenseFile(id)] = struct{}{}
	}

	existing, err := filepath.Glob(filepath.Join(dir, "MODULE_LICENSE_*"))
	if err != nil {
		return err
	}
	for _, path := range existing {
		if _, keep := want[filepath.Base(path)]; keep {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	for name := range want {
		path := filepath.Join(dir, name)
		if _, err := os.Lstat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
