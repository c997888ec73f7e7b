// Package buildgen invokes cargo_embargo, the tool that generates Android.bp
// build metadata from a crate's sources.
package buildgen

import (
	"context"

	"cratehealth/internal/runner"
)

const (
	// BuildFile is the generated build file checked in next to each crate.
	BuildFile = "Android.bp"
	// ConfigFile configures cargo_embargo for a crate.
	ConfigFile = "cargo_embargo.json"
)

// Intermediates are files cargo_embargo leaves behind in the crate directory.
var Intermediates = []string{"Android.bp.orig", "cargo.metadata", "cargo.out", "target.tmp"}

// Generator produces build metadata for a crate directory. Both methods
// return the captured process output; the error is reserved for failures to
// run the tool at all.
type Generator interface {
	Generate(ctx context.Context, dir string) (runner.Output, error)
	Autoconfig(ctx context.Context, dir string) (runner.Output, error)
}

// CargoEmbargo runs the cargo_embargo binary.
type CargoEmbargo struct {
	Runner  runner.Runner
	Command string
	Env     []string
}

func (c CargoEmbargo) command() string {
	if c.Command == "" {
		return "cargo_embargo"
	}
	return c.Command
}

func (c CargoEmbargo) run(ctx context.Context, dir string, args ...string) (runner.Output, error) {
	r := c.Runner
	if r == nil {
		r = runner.CmdRunner{}
	}
	return r.Run(ctx, c.command(), args, runner.RunOptions{Dir: dir, Env: c.Env})
}

// Generate regenerates Android.bp in dir from cargo_embargo.json.
func (c CargoEmbargo) Generate(ctx context.Context, dir string) (runner.Output, error) {
	return c.run(ctx, dir, "generate", ConfigFile)
}

// Autoconfig writes a default cargo_embargo.json for the crate in dir.
func (c CargoEmbargo) Autoconfig(ctx context.Context, dir string) (runner.Output, error) {
	return c.run(ctx, dir, "autoconfig", ConfigFile)
}

var _ Generator = CargoEmbargo{}
