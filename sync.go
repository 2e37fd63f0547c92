package mirror

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// BaseURL returns the package download base: the first http or https scheme
// listed in baseLocationAccessProtocols joined with baseLocation.
func (m *Manifest) BaseURL() (string, error) {
	host := strings.Trim(strings.TrimSpace(m.BaseLocation), "/")
	if host == "" {
		return "", fmt.Errorf("%w: baseLocation is empty", ErrNoProtocol)
	}
	for _, p := range strings.Split(m.BaseLocationAccessProtocols, ",") {
		scheme := strings.ToLower(strings.TrimSpace(p))
		if scheme == "http" || scheme == "https" {
			return scheme + "://" + host, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoProtocol, m.BaseLocationAccessProtocols)
}

// syncer walks a catalog's components and brings a mirror root in line with it.
type syncer struct {
	// store is the mirror root.
	store storageInterface

	// dl fetches component files.
	dl *downloader

	// logger receives diagnostic messages.
	logger Logger

	// lang selects component display names for diagnostics.
	lang string

	// encoding is the Catalog.xml export encoding.
	encoding string
}

// run processes every component in catalog order. Per-component failures and
// checksum mismatches are recorded in report and never stop the loop. The
// catalog is exported and stale files pruned only if something was downloaded.
func (s *syncer) run(ctx context.Context, mf *Manifest, baseURL string, cfg *syncConfig, report *SyncReport) error {
	progress := func(p SyncProgress) {
		if cfg.progressFn != nil {
			cfg.progressFn(p)
		}
	}

	progress(SyncProgress{Phase: "scan"})
	existing, err := s.store.managedFiles()
	if err != nil {
		return err
	}
	s.logger.Debug("scanned mirror", "root", s.store.root(), "files", len(existing))

	total := len(mf.Components)
	// retained holds the keys of files kept or downloaded by this run.
	retained := make(map[string]bool)
	seen := make(map[string]bool)

	for i, c := range mf.Components {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := c.Path()
		dest, ok := s.store.resolve(path)
		if !ok {
			s.logger.Warn("skipping component with unusable path", "path", path)
			report.Skipped = append(report.Skipped, path)
			continue
		}
		key := pathKey(dest)
		if seen[key] {
			s.logger.Debug("component listed twice", "path", path)
			continue
		}
		seen[key] = true

		expected := c.HashMD5()

		if onDisk, ok := existing[key]; ok {
			progress(SyncProgress{Phase: "verify", Index: i + 1, Total: total, Path: path})
			if expected == "" {
				s.logger.Debug("no checksum in catalog, keeping existing file", "path", path)
				retained[key] = true
				report.Kept = append(report.Kept, path)
				continue
			}
			sum, err := s.store.hashFile(onDisk)
			if err == nil && verifyHash(sum, expected) == nil {
				retained[key] = true
				report.Kept = append(report.Kept, path)
				continue
			}
			s.logger.Warn("existing file failed verification, downloading again",
				"path", path, "expected", expected, "actual", sum, "error", err)
			report.Mismatched = append(report.Mismatched, path)
		}

		if cfg.dryRun || (cfg.confirm != nil && !cfg.confirm(c)) {
			s.logger.Info("would download", "path", path, "destination", dest)
			report.WouldDownload = append(report.WouldDownload, path)
			continue
		}

		rawURL := baseURL + "/" + strings.TrimLeft(path, "/")
		progress(SyncProgress{Phase: "download", Index: i + 1, Total: total, Path: path, BytesTotal: -1})

		sum, n, err := s.dl.fetch(ctx, rawURL, dest, func(done, size int64) {
			progress(SyncProgress{
				Phase:          "download",
				Index:          i + 1,
				Total:          total,
				Path:           path,
				BytesCompleted: done,
				BytesTotal:     size,
			})
		})
		if err != nil {
			cerr := &ComponentError{
				Name:        c.DisplayName(s.lang),
				Path:        path,
				URL:         rawURL,
				URLs:        c.URLs(),
				Destination: dest,
				Err:         err,
			}
			s.logger.Warn("download failed",
				"name", cerr.Name, "url", rawURL, "urls", cerr.URLs, "destination", dest, "error", err)
			report.Failed = append(report.Failed, cerr)
			continue
		}

		if expected != "" && verifyHash(sum, expected) != nil {
			s.logger.Warn("downloaded file failed verification, keeping it",
				"path", path, "expected", expected, "actual", sum)
			report.Mismatched = append(report.Mismatched, path)
		}

		s.logger.Debug("downloaded", "path", path, "bytes", n)
		retained[key] = true
		report.Downloaded = append(report.Downloaded, path)
		report.BytesDownloaded += n
	}

	if !report.Dirty() {
		return nil
	}

	progress(SyncProgress{Phase: "export", Path: CatalogFileName})
	if err := s.export(mf); err != nil {
		return err
	}
	report.CatalogWritten = true

	s.prune(existing, retained, report, progress)
	return nil
}

// export writes the mirror copy of the catalog to the root.
func (s *syncer) export(mf *Manifest) error {
	var buf bytes.Buffer
	if err := EncodeManifest(&buf, mf.forMirror(), s.encoding); err != nil {
		return err
	}
	path := filepath.Join(s.store.root(), CatalogFileName)
	if err := s.store.atomicWrite(path, buf.Bytes()); err != nil {
		return err
	}
	s.logger.Info("catalog exported", "path", path)
	return nil
}

// prune deletes files that were present before the run and were not kept or
// downloaded by it, then removes directories left empty. A file whose
// replacement failed or was declined is not retained and is deleted too.
func (s *syncer) prune(existing map[string]string, retained map[string]bool, report *SyncReport, progress func(SyncProgress)) {
	var stale []string
	for key, path := range existing {
		if !retained[key] {
			stale = append(stale, path)
		}
	}
	sort.Strings(stale)

	for _, path := range stale {
		rel, err := filepath.Rel(s.store.root(), path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		progress(SyncProgress{Phase: "prune", Path: rel})
		if err := s.store.remove(path); err != nil {
			s.logger.Warn("failed to prune file", "path", path, "error", err)
			continue
		}
		s.logger.Info("pruned", "path", rel)
		report.Pruned = append(report.Pruned, rel)
	}

	if len(stale) > 0 {
		if err := s.store.removeEmptyDirs(); err != nil {
			s.logger.Warn("failed to remove empty directories", "error", err)
		}
	}
}
