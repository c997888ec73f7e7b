// Package license finds the license files that satisfy a crate's declared
// SPDX expression and maintains the MODULE_LICENSE_* marker files.
package license

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoLicense is returned when a crate declares no license expression.
var ErrNoLicense = errors.New("crate declares no license")

// State is the outcome of matching an expression against files on disk.
type State struct {
	// Satisfied maps a license identifier to the file that provides it.
	Satisfied map[string]string
	// Unsatisfied lists requirements with no matching file.
	Unsatisfied []string
}

// SatisfiedIDs returns the satisfied identifiers in sorted order.
func (s State) SatisfiedIDs() []string {
	ids := make([]string, 0, len(s.Satisfied))
	for id := range s.Satisfied {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s State) String() string {
	parts := make([]string, 0, len(s.Satisfied))
	for _, id := range s.SatisfiedIDs() {
		parts = append(parts, id+"="+filepath.Base(s.Satisfied[id]))
	}
	return fmt.Sprintf("satisfied: [%s] unsatisfied: [%s]", strings.Join(parts, ", "), strings.Join(s.Unsatisfied, ", "))
}

// Checker resolves license requirements for a crate directory.
type Checker interface {
	Find(dir, name, expression string) (State, error)
}

// FileChecker matches requirements against license files by name and,
// for generic names such as LICENSE, by content.
type FileChecker struct{}

// Find parses expression into AND-groups of OR-alternatives. A group is
// satisfied when any alternative has a file. For an unsatisfied group the
// reported requirement is Apache-2.0 when it is one of the alternatives,
// otherwise the first alternative.
func (FileChecker) Find(dir, name, expression string) (State, error) {
	groups := ParseExpression(expression)
	if len(groups) == 0 {
		return State{}, fmt.Errorf("%s: %w", name, ErrNoLicense)
	}
	files, err := candidateFiles(dir)
	if err != nil {
		return State{}, err
	}

	st := State{Satisfied: map[string]string{}}
	for _, group := range groups {
		found := false
		for _, id := range group {
			if file, ok := matchFile(id, files, len(groups) == 1 && len(group) == 1); ok {
				st.Satisfied[id] = file
				found = true
			}
		}
		if !found {
			st.Unsatisfied = append(st.Unsatisfied, preferred(group))
		}
	}
	return st, nil
}

func preferred(group []string) string {
	for _, id := range group {
		if id == "Apache-2.0" {
			return id
		}
	}
	return group[0]
}

// ParseExpression splits an SPDX expression into AND-groups of
// OR-alternatives. Parentheses are honored one level deep, "WITH" exceptions
// are dropped, and the legacy "/" separator is read as OR.
func ParseExpression(expr string) [][]string {
	expr = strings.ReplaceAll(expr, "/", " OR ")
	expr = strings.ReplaceAll(expr, "(", " ( ")
	expr = strings.ReplaceAll(expr, ")", " ) ")
	tokens := strings.Fields(expr)

	var groups [][]string
	var current []string
	depth := 0
	skipNext := false
	flush := func() {
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
	}
	for _, tok := range tokens {
		if skipNext {
			skipNext = false
			continue
		}
		switch strings.ToUpper(tok) {
		case "(":
			depth++
		case ")":
			depth--
		case "OR":
		case "AND":
			if depth == 0 {
				flush()
			}
		case "WITH":
			skipNext = true
		default:
			current = appendUnique(current, strings.TrimSuffix(tok, "+"))
		}
	}
	flush()
	return groups
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

var licenseFilePrefixes = []string{"LICENSE", "LICENCE", "COPYING", "UNLICENSE", "COPYRIGHT"}

func candidateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		upper := strings.ToUpper(e.Name())
		for _, prefix := range licenseFilePrefixes {
			if strings.HasPrefix(upper, prefix) {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// nameHints maps an identifier to upper-case file-name fragments that
// designate it, e.g. LICENSE-APACHE.
var nameHints = map[string][]string{
	"Apache-2.0":       {"APACHE"},
	"MIT":              {"MIT"},
	"BSD-2-Clause":     {"BSD"},
	"BSD-3-Clause":     {"BSD"},
	"ISC":              {"ISC"},
	"Zlib":             {"ZLIB"},
	"MPL-2.0":          {"MPL"},
	"BSL-1.0":          {"BOOST", "BSL"},
	"Unicode-DFS-2016": {"UNICODE"},
	"Unicode-3.0":      {"UNICODE"},
	"Unlicense":        {"UNLICENSE"},
	"0BSD":             {"0BSD"},
	"CC0-1.0":          {"CC0"},
}

// contentHints identify generic license files by phrases in their text.
var contentHints = map[string][]string{
	"Apache-2.0":   {"Apache License", "Version 2.0"},
	"MIT":          {"Permission is hereby granted, free of charge"},
	"BSD-3-Clause": {"Redistribution and use in source and binary forms", "Neither the name"},
	"BSD-2-Clause": {"Redistribution and use in source and binary forms"},
	"ISC":          {"Permission to use, copy, modify, and/or distribute this software"},
	"Unlicense":    {"This is free and unencumbered software"},
	"MPL-2.0":      {"Mozilla Public License"},
	"Zlib":         {"This software is provided 'as-is'"},
}

func matchFile(id string, files []string, soleRequirement bool) (string, bool) {
	for _, file := range files {
		upper := strings.ToUpper(filepath.Base(file))
		for _, hint := range nameHints[id] {
			if strings.Contains(upper, "-"+hint) || strings.Contains(upper, "_"+hint) || strings.Contains(upper, "."+hint) || upper == hint {
				return file, true
			}
		}
	}
	for _, file := range files {
		if !isGeneric(file) {
			continue
		}
		if hints, ok := contentHints[id]; ok && containsAll(file, hints) {
			return file, true
		}
	}
	if soleRequirement {
		for _, file := range files {
			if isGeneric(file) {
				return file, true
			}
		}
	}
	return "", false
}

func isGeneric(file string) bool {
	upper := strings.ToUpper(filepath.Base(file))
	switch strings.TrimSuffix(strings.TrimSuffix(upper, ".MD"), ".TXT") {
	case "LICENSE", "LICENCE", "COPYING":
		return true
	}
	return false
}

func containsAll(file string, phrases []string) bool {
	data, err := os.ReadFile(file)
	if err != nil {
		return false
	}
	text := string(data)
	for _, phrase := range phrases {
		if !strings.Contains(text, phrase) {
			return false
		}
	}
	return true
}
