package buildgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cratehealth/internal/runner"
)

type recordingRunner struct {
	command string
	args    []string
	opts    runner.RunOptions
}

func (r *recordingRunner) Run(_ context.Context, command string, args []string, opts runner.RunOptions) (runner.Output, error) {
	r.command, r.args, r.opts = command, args, opts
	return runner.Output{Command: runner.CommandLine(command, args)}, nil
}

func TestCargoEmbargoGenerate(t *testing.T) {
	r := &recordingRunner{}
	g := CargoEmbargo{Runner: r, Env: []string{"ANDROID_BUILD_TOP=/src"}}

	out, err := g.Generate(context.Background(), "/crates/foo")
	require.NoError(t, err)
	require.True(t, out.Success())
	require.Equal(t, "cargo_embargo", r.command)
	require.Equal(t, []string{"generate", ConfigFile}, r.args)
	require.Equal(t, "/crates/foo", r.opts.Dir)
	require.Equal(t, []string{"ANDROID_BUILD_TOP=/src"}, r.opts.Env)
}

func TestCargoEmbargoAutoconfigCustomCommand(t *testing.T) {
	r := &recordingRunner{}
	g := CargoEmbargo{Runner: r, Command: "/opt/bin/cargo_embargo"}

	_, err := g.Autoconfig(context.Background(), "/crates/foo")
	require.NoError(t, err)
	require.Equal(t, "/opt/bin/cargo_embargo", r.command)
	require.Equal(t, []string{"autoconfig", ConfigFile}, r.args)
}
