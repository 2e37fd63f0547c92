package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// Mirror provides programmatic access to the catalog pipeline.
// For CLI integration, use NewCommand instead.
type Mirror interface {
	// Load reads a catalog from an http(s) URL, a file URL or a local path.
	// An empty source uses Config.Source, then DefaultCatalogURL.
	// Returns an error wrapping ErrFetch or ErrMalformedCatalog.
	Load(ctx context.Context, source string) (*Manifest, error)

	// Filter returns a copy of mf reduced to the given models.
	// Returns ErrNoModels if models is empty.
	Filter(mf *Manifest, models []string) (*Manifest, error)

	// Models lists the Brand/Model pairs targeted by mf.
	Models(mf *Manifest) []ModelInfo

	// Sync brings dest in line with mf. Component failures and checksum
	// mismatches are reported in SyncReport; the error is non-nil only for
	// failures that abort the whole run.
	Sync(ctx context.Context, mf *Manifest, dest string, opts ...SyncOption) (SyncReport, error)

	// Export writes mf as XML in the configured export encoding.
	Export(w io.Writer, mf *Manifest) error
}

// mirror is the concrete implementation of the Mirror interface.
type mirror struct {
	// cfg holds the module configuration.
	cfg Config

	// httpClient is used for all HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic messages.
	logger Logger

	// catalog loads and parses catalogs.
	catalog *catalogClient

	// syncMu serializes Sync calls within the process.
	syncMu sync.Mutex
}

// Ensure mirror implements Mirror interface.
var _ Mirror = (*mirror)(nil)

// NewMirror creates a new Mirror with the given configuration.
// Returns an error if the configuration is invalid.
func NewMirror(cfg Config, opts ...MirrorOption) (Mirror, error) {
	if cfg.AppName == "" {
		return nil, errors.New("mirror: AppName is required")
	}
	enc, err := normalizeEncoding(cfg.ExportEncoding)
	if err != nil {
		return nil, err
	}
	cfg.ExportEncoding = enc
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	mcfg := newMirrorConfig()
	for _, opt := range opts {
		opt(mcfg)
	}
	if mcfg.httpClient == nil {
		mcfg.httpClient = newHTTPClient()
	}
	if mcfg.logger == nil {
		mcfg.logger = nopLogger{}
	}

	return &mirror{
		cfg:        cfg,
		httpClient: mcfg.httpClient,
		logger:     mcfg.logger,
		catalog:    newCatalogClient(mcfg.httpClient, cfg.RequestTimeout, mcfg.logger),
	}, nil
}

// Load reads and parses a catalog.
func (m *mirror) Load(ctx context.Context, source string) (*Manifest, error) {
	if source == "" {
		source = m.cfg.Source
	}
	if source == "" {
		source = DefaultCatalogURL
	}

	mf, err := m.catalog.load(ctx, source)
	if err != nil {
		return nil, err
	}
	m.logger.Info("catalog loaded", "source", source,
		"bundles", len(mf.Bundles), "components", len(mf.Components))
	return mf, nil
}

// Filter reduces mf to the given models.
func (m *mirror) Filter(mf *Manifest, models []string) (*Manifest, error) {
	out, err := Filter(mf, models)
	if err != nil {
		return nil, err
	}
	m.logger.Info("catalog filtered", "models", strings.Join(models, ","),
		"bundles", len(out.Bundles), "components", len(out.Components))
	return out, nil
}

// Models lists the catalog's target systems in the configured language.
func (m *mirror) Models(mf *Manifest) []ModelInfo {
	return mf.Models(m.cfg.language())
}

// Sync downloads missing components into dest, exports the catalog and prunes
// stale files.
func (m *mirror) Sync(ctx context.Context, mf *Manifest, dest string, opts ...SyncOption) (SyncReport, error) {
	cfg := newSyncConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	report := SyncReport{Destination: dest}
	if mf == nil {
		return report, fmt.Errorf("%w: no catalog given", ErrMalformedCatalog)
	}

	baseURL := cfg.baseURL
	if baseURL == "" {
		var err error
		if baseURL, err = mf.BaseURL(); err != nil {
			return report, err
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	report.BaseURL = baseURL

	store, err := newStorage(dest)
	if err != nil {
		return report, err
	}
	report.Destination = store.root()

	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	// A dry run writes nothing, not even the lock file.
	if !cfg.dryRun {
		lock, err := newFileLock(filepath.Join(store.root(), lockFileName), DefaultLockTimeout)
		if err != nil {
			return report, fmt.Errorf("%w: failed to create lock: %v", ErrStorageError, err)
		}
		if err := lock.Lock(); err != nil {
			lock.Unlock()
			return report, fmt.Errorf("%w: %s: %v", ErrLocked, store.root(), err)
		}
		defer lock.Unlock()
	}

	m.logger.Info("sync started", "destination", store.root(), "base_url", baseURL,
		"components", len(mf.Components), "dry_run", cfg.dryRun)

	s := &syncer{
		store:    store,
		dl:       newDownloader(m.httpClient, store),
		logger:   m.logger,
		lang:     m.cfg.language(),
		encoding: m.cfg.ExportEncoding,
	}
	if err := s.run(ctx, mf, baseURL, cfg, &report); err != nil {
		return report, err
	}

	m.logger.Info("sync finished",
		"kept", len(report.Kept),
		"downloaded", len(report.Downloaded),
		"failed", len(report.Failed),
		"pruned", len(report.Pruned),
		"catalog_written", report.CatalogWritten)
	return report, nil
}

// Export writes mf in the configured encoding.
func (m *mirror) Export(w io.Writer, mf *Manifest) error {
	return EncodeManifest(w, mf, m.cfg.ExportEncoding)
}
