package mirror

import (
	"fmt"
	"strings"
	"time"
)

// Config configures the mirror.
type Config struct {
	// AppName determines the config directory and environment variable prefix.
	// Example: "dell-catalog-mirror" → DELL_CATALOG_MIRROR_DEST
	AppName string

	// Source is the catalog URL or local file path.
	// If empty, DefaultCatalogURL is used.
	Source string

	// Language selects localized display text. Defaults to "en".
	Language string

	// Destination is the mirror root used by the sync command.
	Destination string

	// Models is the default model set used by the filter and sync commands.
	Models []string

	// RequestTimeout bounds the catalog request. Package downloads are only
	// bounded by the response header timeout and the caller's context.
	RequestTimeout time.Duration

	// ExportEncoding is the encoding of the exported Catalog.xml: "utf-8" or "utf-16".
	ExportEncoding string
}

// language returns the configured language or DefaultLanguage.
func (c Config) language() string {
	if c.Language == "" {
		return DefaultLanguage
	}
	return c.Language
}

// ModelInfo is a flattened Brand/Model pair from the catalog's target systems.
type ModelInfo struct {
	// Brand is the brand display name, e.g. "PowerEdge".
	Brand string `json:"brand"`

	// Model is the model display name, e.g. "R640".
	Model string `json:"model"`

	// SystemID is the system identifier, e.g. "0716".
	SystemID string `json:"system_id"`

	// Type is the kind of system identifier, e.g. "BIOS".
	Type string `json:"type"`
}

// String returns "Brand Model".
func (m ModelInfo) String() string {
	return strings.TrimSpace(m.Brand + " " + m.Model)
}

// SyncReport summarizes a sync run. Paths are component paths as they appear
// in the catalog.
type SyncReport struct {
	// BaseURL is the resolved package download base.
	BaseURL string `json:"base_url"`

	// Destination is the mirror root.
	Destination string `json:"destination"`

	// Kept lists components already present with a valid checksum.
	Kept []string `json:"kept"`

	// Downloaded lists components fetched during this run.
	Downloaded []string `json:"downloaded"`

	// WouldDownload lists components skipped by dry-run or declined confirmation.
	WouldDownload []string `json:"would_download,omitempty"`

	// Mismatched lists components whose checksum did not match, before or after download.
	Mismatched []string `json:"mismatched,omitempty"`

	// Failed lists components that could not be downloaded.
	Failed []*ComponentError `json:"-"`

	// Skipped lists components ignored because their path is unusable.
	Skipped []string `json:"skipped,omitempty"`

	// Pruned lists local files removed because no component references them.
	Pruned []string `json:"pruned,omitempty"`

	// CatalogWritten reports whether Catalog.xml was exported.
	CatalogWritten bool `json:"catalog_written"`

	// BytesDownloaded is the total size of the files fetched.
	BytesDownloaded int64 `json:"bytes_downloaded"`
}

// Dirty reports whether at least one component was downloaded.
func (r SyncReport) Dirty() bool {
	return len(r.Downloaded) > 0
}

// Warnings returns one line per non-fatal problem recorded during the run.
func (r SyncReport) Warnings() []string {
	var w []string
	for _, p := range r.Mismatched {
		w = append(w, fmt.Sprintf("checksum mismatch: %s", p))
	}
	for _, e := range r.Failed {
		w = append(w, e.Error())
	}
	for _, p := range r.Skipped {
		w = append(w, fmt.Sprintf("skipped unusable path: %s", p))
	}
	return w
}

// SyncProgress reports progress during a sync.
type SyncProgress struct {
	// Phase is one of "scan", "verify", "download", "export" or "prune".
	Phase string

	// Index is the 1-based position of the current component.
	Index int

	// Total is the number of components in the catalog.
	Total int

	// Path is the component path or pruned file being processed.
	Path string

	// BytesCompleted is the bytes of the current download received so far.
	BytesCompleted int64

	// BytesTotal is the expected size of the current download, or -1 if unknown.
	BytesTotal int64
}
