package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"cratehealth/internal/runner"
)

// Detect returns the status of each known tool. executables overrides the
// command looked up for a tool; missing or blank entries use the default.
func Detect(ctx context.Context, r runner.Runner, executables map[string]string) []Status {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if r == nil {
		r = runner.CmdRunner{}
	}

	var statuses []Status
	for _, name := range KnownTools() {
		def, _ := Definition(name)
		if exe := strings.TrimSpace(executables[name]); exe != "" {
			def.Binary.Executable = exe
		}
		statuses = append(statuses, detectOne(ctx, r, def))
	}
	return statuses
}

func detectOne(ctx context.Context, r runner.Runner, def ToolDefinition) Status {
	status := Status{Tool: def.Name, Minimum: def.MinimumVersion, Required: def.Required}

	path, err := exec.LookPath(def.Binary.Executable)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			status.Error = fmt.Sprintf("%s not found in PATH", def.Binary.Executable)
		} else {
			status.Error = err.Error()
		}
		return status
	}
	status.Path = path

	version, err := readVersion(ctx, r, def, path)
	if err != nil {
		// Some tools have no version switch; being present is enough when
		// no minimum applies.
		if def.MinimumVersion == "" {
			status.Satisfied = true
			status.Notes = append(status.Notes, fmt.Sprintf("version unknown: %v", err))
			return status
		}
		status.Error = err.Error()
		return status
	}

	status.Version = version
	status.Satisfied = meetsMinimum(version, def.MinimumVersion)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
	}
	return status
}

// Missing returns the required tools that are not satisfied.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, st := range statuses {
		if st.Required && !st.Satisfied {
			out = append(out, st)
		}
	}
	return out
}
