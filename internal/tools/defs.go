package tools

import (
	"runtime"
	"sort"

	"cratehealth/internal/config"
)

var toolDefinitions = map[string]ToolDefinition{
	"cargo": {
		Name:           "cargo",
		MinimumVersion: "1.70.0",
		Required:       true,
		Binary:         BinarySpec{Executable: executableName("cargo"), VersionSwitch: "--version"},
	},
	"cargo_embargo": {
		Name:     "cargo_embargo",
		Required: true,
		Binary:   BinarySpec{Executable: executableName("cargo_embargo"), VersionSwitch: "--version"},
	},
	"patch": {
		Name:           "patch",
		MinimumVersion: "2.7.0",
		Required:       true,
		Binary:         BinarySpec{Executable: executableName("patch"), VersionSwitch: "--version"},
	},
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the list of tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}

// Executables maps tool names to the commands configured for them.
func Executables(cfg config.ToolsConfig) map[string]string {
	return map[string]string{
		"cargo":         cfg.Cargo,
		"cargo_embargo": cfg.CargoEmbargo,
		"patch":         cfg.Patch,
	}
}
