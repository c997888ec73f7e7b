package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cratehealth/internal/config"
	"cratehealth/internal/logx"
	"cratehealth/internal/managedrepo"
	"cratehealth/internal/metrics"
	"cratehealth/internal/paths"
	"cratehealth/internal/runner"
)

// newRunner is swapped out by tests.
var newRunner = func() runner.Runner { return runner.CmdRunner{} }

// commandEnv holds what every repo command needs: resolved paths, the
// effective config, a logger and the metrics recorder.
type commandEnv struct {
	paths   paths.RepoPaths
	cfg     config.Config
	log     *zerolog.Logger
	closer  io.Closer
	metrics *metrics.Recorder
}

func loadConfig() (paths.RepoPaths, config.Config, error) {
	pp, err := paths.Resolve(rootDir)
	if err != nil {
		return paths.RepoPaths{}, config.Config{}, err
	}
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return paths.RepoPaths{}, config.Config{}, fmt.Errorf("resolve config path: %w", err)
		}
		pp.ConfigFile = abs
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return paths.RepoPaths{}, config.Config{}, err
	}
	if err := cfg.LoadDenylistFiles(filepath.Dir(pp.ConfigFile)); err != nil {
		return paths.RepoPaths{}, config.Config{}, err
	}
	return paths.ApplyConfig(pp, cfg), cfg, nil
}

func openEnv(cmd *cobra.Command) (*commandEnv, error) {
	pp, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	exists, err := paths.DirExists(pp.ManagedRepo)
	if err != nil {
		return nil, fmt.Errorf("stat managed repo: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("managed repo does not exist: %s", pp.ManagedRepo)
	}

	log, closer, err := logx.New(pp, logx.Options{
		Console: verbose,
		Stderr:  cmd.ErrOrStderr(),
		Command: cmd.Name(),
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("root", pp.Root).Str("managed_repo", pp.ManagedRepoRel).Msg("starting")

	return &commandEnv{
		paths:   pp,
		cfg:     cfg,
		log:     log,
		closer:  closer,
		metrics: metrics.New(),
	}, nil
}

// repo builds the ManagedRepo for this command. out receives progress lines.
func (e *commandEnv) repo(out io.Writer, reporter managedrepo.Reporter, progress managedrepo.Progress) (*managedrepo.ManagedRepo, error) {
	return managedrepo.New(managedrepo.Options{
		Paths:    e.paths,
		Config:   e.cfg,
		Runner:   newRunner(),
		Out:      out,
		Reporter: reporter,
		Progress: progress,
		Logger:   e.log,
		Metrics:  e.metrics,
	})
}

// close writes the metrics textfile and closes the log. The command error,
// if any, is logged first and returned unchanged unless closing fails too.
func (e *commandEnv) close(cmdErr error) error {
	if cmdErr != nil {
		e.log.Error().Err(cmdErr).Msg("command failed")
	} else {
		e.log.Info().Msg("done")
	}
	var errs []error
	if cmdErr != nil {
		errs = append(errs, cmdErr)
	}
	if path := e.metricsTextfile(); path != "" {
		if err := e.metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		}
	}
	if e.closer != nil {
		if err := e.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func (e *commandEnv) metricsTextfile() string {
	path := strings.TrimSpace(e.cfg.MetricsTextfile)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.paths.Root, path)
}

// withRepoEnv opens the environment, runs fn and closes it.
func withRepoEnv(cmd *cobra.Command, fn func(env *commandEnv) error) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	return env.close(fn(env))
}
