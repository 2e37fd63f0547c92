package mirror

import (
	"net/http"
	"time"
)

// DefaultCatalogURL is the Dell enterprise catalog.
const DefaultCatalogURL = "https://downloads.dell.com/catalog/Catalog.xml.gz"

// CatalogFileName is the name of the catalog exported into the mirror root.
const CatalogFileName = "Catalog.xml"

// Timeout constants for HTTP requests.
const (
	// DefaultRequestTimeout is the default timeout for the catalog request.
	DefaultRequestTimeout = 5 * time.Minute

	// DefaultResponseHeaderTimeout bounds the wait for response headers on every request.
	DefaultResponseHeaderTimeout = 30 * time.Second
)

// SyncOption configures a sync operation.
type SyncOption func(*syncConfig)

// syncConfig holds configuration for a sync operation.
type syncConfig struct {
	// dryRun reports what would be downloaded without writing anything.
	dryRun bool

	// confirm is asked before each download. Returning false skips it.
	confirm func(SoftwareComponent) bool

	// baseURL overrides the base derived from the catalog.
	baseURL string

	// progressFn is called with progress updates during the sync.
	progressFn func(SyncProgress)
}

// newSyncConfig returns a syncConfig with default values.
func newSyncConfig() *syncConfig {
	return &syncConfig{}
}

// WithDryRun skips every download while still reporting what would be fetched.
// No files are written or deleted and Catalog.xml is not exported.
func WithDryRun() SyncOption {
	return func(c *syncConfig) {
		c.dryRun = true
	}
}

// WithConfirm sets a callback asked before each download.
// Components it declines are reported in SyncReport.WouldDownload.
func WithConfirm(fn func(SoftwareComponent) bool) SyncOption {
	return func(c *syncConfig) {
		c.confirm = fn
	}
}

// WithBaseURL overrides the download base derived from the catalog's
// baseLocation and baseLocationAccessProtocols.
func WithBaseURL(url string) SyncOption {
	return func(c *syncConfig) {
		c.baseURL = url
	}
}

// WithProgress sets a callback for progress updates during the sync.
func WithProgress(fn func(SyncProgress)) SyncOption {
	return func(c *syncConfig) {
		c.progressFn = fn
	}
}

// MirrorOption configures a Mirror.
type MirrorOption func(*mirrorConfig)

// mirrorConfig holds configuration for Mirror construction.
type mirrorConfig struct {
	// httpClient is used for the catalog and package requests.
	httpClient HTTPClient

	// logger receives diagnostic log messages.
	logger Logger
}

// newMirrorConfig returns a mirrorConfig with default values.
// The HTTP client is built in NewMirror once the request timeout is known.
func newMirrorConfig() *mirrorConfig {
	return &mirrorConfig{}
}

// WithHTTPClient sets a custom HTTP client for catalog and package requests.
// Useful for testing with mock servers or customizing transports.
func WithHTTPClient(client HTTPClient) MirrorOption {
	return func(c *mirrorConfig) {
		c.httpClient = client
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) MirrorOption {
	return func(c *mirrorConfig) {
		c.logger = logger
	}
}

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// *slog.Logger satisfies this interface.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

// nopLogger discards everything. Used when no logger is configured.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
