package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cratehealth/internal/runner"
	"cratehealth/internal/semver"
)

func readVersion(ctx context.Context, r runner.Runner, def ToolDefinition, path string) (string, error) {
	if def.Binary.VersionSwitch == "" {
		return "", fmt.Errorf("tool %s has no version switch", def.Name)
	}
	out, err := r.Run(ctx, path, []string{def.Binary.VersionSwitch}, runner.RunOptions{})
	if err != nil {
		return "", fmt.Errorf("%s version: %w", def.Name, err)
	}
	if err := out.SuccessOrError(); err != nil {
		return "", err
	}

	line := firstLine(strings.TrimSpace(string(out.Stdout)))
	version := normalizeVersion(line)
	if version == "" {
		return "", fmt.Errorf("%s version: no version in %q", def.Name, line)
	}
	return version, nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

var versionRegex = regexp.MustCompile(`[0-9]+(?:\.[0-9]+){1,2}(?:-[0-9A-Za-z.-]+)?`)

// normalizeVersion pulls the first dotted version out of a banner such as
// "cargo 1.78.0 (54d8815d0 2024-03-26)" or "GNU patch 2.7.6".
func normalizeVersion(line string) string {
	return versionRegex.FindString(line)
}

func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	v, err := semver.ParseVersion(version)
	if err != nil {
		return false
	}
	m, err := semver.ParseVersion(minimum)
	if err != nil {
		return true
	}
	return semver.Compare(v, m) >= 0
}
