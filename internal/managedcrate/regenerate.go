package managedcrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cratehealth/internal/fsutil"
	"cratehealth/internal/metadata"
	"cratehealth/internal/pseudocrate"
)

// Regenerate stages the crate from v and, if patches and the generator
// succeed, replaces the checked-in crate with the staged copy. With
// updateMetadata the METADATA version and URLs are refreshed to the
// vendored version.
func (m *ManagedCrate) Regenerate(ctx context.Context, updateMetadata bool, v *pseudocrate.Vendored) error {
	if m.legacy {
		return fmt.Errorf("regenerate %s: %w", m.krate, ErrLegacyCrate)
	}
	s, err := m.Stage(ctx, v)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.PatchSuccess() {
		return s.CheckStaged()
	}
	if !s.CargoEmbargoSuccess() {
		return fmt.Errorf("%s: %v: %w", m.krate.Name(), s.CargoEmbargoOutput().SuccessOrError(), ErrGeneratorFailure)
	}
	if err := s.removeIntermediates(); err != nil {
		return err
	}
	if updateMetadata {
		if err := updateMetadataFile(filepath.Join(s.StagingPath(), metadata.FileName), m.krate.Name(), s.VendoredVersion().String()); err != nil {
			return err
		}
	}
	m.opts.Logger.Printf("managedcrate: writing %s to %s", m.krate.Name(), m.krate.Path())
	return fsutil.ReplaceDir(s.StagingPath(), m.krate.Path())
}

func updateMetadataFile(path, name, version string) error {
	md, err := metadata.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := md.SetVersionAndURLs(name, version); err != nil {
		return err
	}
	return md.Write()
}
