// Package managedrepo orchestrates the managed crates repository: migration
// health checks, migration of legacy crates, import of new crates with their
// dependency closure, regeneration and pre-upload consistency checks.
//
// A ManagedRepo is the only writer of the managed crates directory and the
// pseudo-crate manifest. It is not safe for concurrent use, and two processes
// must not operate on the same tree at once.
package managedrepo

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"cratehealth/internal/buildgen"
	"cratehealth/internal/config"
	"cratehealth/internal/crate"
	"cratehealth/internal/license"
	"cratehealth/internal/logx"
	"cratehealth/internal/managedcrate"
	"cratehealth/internal/metrics"
	"cratehealth/internal/paths"
	"cratehealth/internal/pseudocrate"
	"cratehealth/internal/runner"
	"cratehealth/internal/treediff"
)

type Options struct {
	Paths  paths.RepoPaths
	Config config.Config
	// Runner runs cargo, cargo_embargo and patch. Defaults to runner.CmdRunner.
	Runner runner.Runner
	// Generator defaults to cargo_embargo run through Runner.
	Generator buildgen.Generator
	// Licenses defaults to license.FileChecker.
	Licenses license.Checker
	// LicenseFallback defaults to the configured Apache fallback.
	LicenseFallback license.Fallback
	// Out receives user-facing progress lines. Defaults to io.Discard.
	Out      io.Writer
	Reporter Reporter
	Progress Progress
	Logger   *zerolog.Logger
	Metrics  *metrics.Recorder
	// TempDir is the parent of staging directories.
	TempDir string
}

type ManagedRepo struct {
	paths      paths.RepoPaths
	cfg        config.Config
	runner     runner.Runner
	generator  buildgen.Generator
	licenses   license.Checker
	fallback   license.Fallback
	out        io.Writer
	reporter   Reporter
	progress   Progress
	log        *zerolog.Logger
	metrics    *metrics.Recorder
	tempDir    string
	ignoreLine *regexp.Regexp
}

func New(opts Options) (*ManagedRepo, error) {
	ignoreLine, err := opts.Config.IgnoredLineRegexp()
	if err != nil {
		return nil, fmt.Errorf("ignored_line_pattern: %w", err)
	}
	r := &ManagedRepo{
		paths:      opts.Paths,
		cfg:        opts.Config,
		runner:     opts.Runner,
		generator:  opts.Generator,
		licenses:   opts.Licenses,
		fallback:   opts.LicenseFallback,
		out:        opts.Out,
		reporter:   opts.Reporter,
		progress:   opts.Progress,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		tempDir:    opts.TempDir,
		ignoreLine: ignoreLine,
	}
	if r.runner == nil {
		r.runner = runner.CmdRunner{}
	}
	if r.generator == nil {
		r.generator = buildgen.CargoEmbargo{Runner: r.runner, Command: r.cfg.Tools.CargoEmbargo}
	}
	if r.licenses == nil {
		r.licenses = license.FileChecker{}
	}
	if r.fallback == nil {
		r.fallback = fallbackFromConfig(r.cfg.LicenseFallback)
	}
	if r.out == nil {
		r.out = io.Discard
	}
	if r.reporter == nil {
		r.reporter = PlainReporter{W: r.out}
	}
	if r.progress == nil {
		r.progress = nopProgress{}
	}
	if r.log == nil {
		r.log = logx.Nop()
	}
	return r, nil
}

func fallbackFromConfig(cfg config.LicenseFallbackConfig) license.Fallback {
	if !cfg.EnabledValue() {
		return license.Disabled{}
	}
	return license.ApacheFallback{Branch: cfg.Branch, URLTemplate: cfg.URLTemplate}
}

func (r *ManagedRepo) Paths() paths.RepoPaths { return r.paths }

// AllCrateNames returns the sorted names of the managed crate directories.
func (r *ManagedRepo) AllCrateNames() ([]string, error) {
	entries, err := os.ReadDir(r.paths.ManagedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list managed crates: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// contains reports whether name already has a managed directory.
func (r *ManagedRepo) contains(name string) (bool, error) {
	return paths.DirExists(r.paths.ManagedDirFor(name))
}

func (r *ManagedRepo) legacyContains(name string) (bool, error) {
	return paths.DirExists(r.paths.LegacyDirFor(name))
}

// legacyCrate scans the legacy location of name, which must hold exactly one
// crate version.
func (r *ManagedRepo) legacyCrate(name string) (*crate.Crate, error) {
	cc := crate.NewCollection(r.paths.Root)
	if err := cc.AddFrom(r.paths.LegacyDirFor(name)); err != nil {
		return nil, err
	}
	if cc.Len() != 1 {
		return nil, fmt.Errorf("%w: found %d crate versions in %s, crates with multiple versions are not supported",
			ErrAmbiguousVersion, cc.Len(), r.paths.Rel(r.paths.LegacyDirFor(name)))
	}
	return cc.Single(name)
}

func (r *ManagedRepo) legacyNames() (map[string]struct{}, error) {
	cc := crate.NewCollection(r.paths.Root)
	if err := cc.AddFrom(r.paths.LegacyDir); err != nil {
		return nil, fmt.Errorf("scan legacy crates: %w", err)
	}
	return cc.Names(), nil
}

func (r *ManagedRepo) managedCrates() ([]*crate.Crate, error) {
	cc := crate.NewCollection(r.paths.Root)
	if err := cc.AddFrom(r.paths.ManagedDir); err != nil {
		return nil, fmt.Errorf("scan managed crates: %w", err)
	}
	return cc.Crates(), nil
}

func (r *ManagedRepo) pseudoCrate() *pseudocrate.PseudoCrate {
	return pseudocrate.New(r.paths.PseudoCrate, pseudocrate.Options{
		Runner: r.runner,
		Cargo:  r.cfg.Tools.Cargo,
		Logger: logx.Printer{L: r.log},
	})
}

func (r *ManagedRepo) newManagedCrate(k *crate.Crate) *managedcrate.ManagedCrate {
	return managedcrate.New(k, managedcrate.Options{
		Generator:    r.generator,
		Runner:       r.runner,
		PatchCommand: r.cfg.Tools.Patch,
		TempDir:      r.tempDir,
		Logger:       logx.Printer{L: r.log},
	})
}

// managedCrateFor loads the checked-in crate called name.
func (r *ManagedRepo) managedCrateFor(name string) (*managedcrate.ManagedCrate, error) {
	k, err := crate.FromDir(r.paths.ManagedDirFor(name))
	if err != nil {
		return nil, err
	}
	if k.Name() != name {
		return nil, fmt.Errorf("%s holds crate %s", r.paths.Rel(r.paths.ManagedDirFor(name)), k.Name())
	}
	return r.newManagedCrate(k), nil
}

func (r *ManagedRepo) diffOptions(verbose bool) treediff.Options {
	opt := treediff.DefaultOptions()
	opt.Exclude = append(opt.Exclude, r.cfg.ExtraIgnoredFiles...)
	opt.IgnoreLine = r.ignoreLine
	opt.Detail = verbose
	return opt
}

// printf writes a progress line to Out and the log.
func (r *ManagedRepo) printf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	fmt.Fprintln(r.out, msg)
	r.log.Info().Msg(msg)
}

func (r *ManagedRepo) observeStage(start time.Time) {
	r.metrics.ObserveStage(time.Since(start))
}

// eachCrate runs fn for every name, reporting progress, and stops at the
// first failure.
func (r *ManagedRepo) eachCrate(ctx context.Context, names []string, step string, fn func(name string) error) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.progress.Start(name, step)
		err := fn(name)
		r.progress.Done(name, err)
		if err != nil {
			return err
		}
	}
	return nil
}
