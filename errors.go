package mirror

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for catalog operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrFetch indicates the catalog could not be retrieved from its source.
	ErrFetch = errors.New("mirror: catalog fetch failed")

	// ErrMalformedCatalog indicates the catalog content could not be parsed.
	ErrMalformedCatalog = errors.New("mirror: malformed catalog")

	// ErrNoModels indicates a filter was requested with an empty model set.
	ErrNoModels = errors.New("mirror: no models given")

	// ErrNoProtocol indicates the catalog offers no http or https access protocol.
	ErrNoProtocol = errors.New("mirror: no usable access protocol")

	// ErrDestinationMissing indicates the sync destination does not exist or is not a directory.
	ErrDestinationMissing = errors.New("mirror: destination directory does not exist")

	// ErrLocked indicates another process is synchronizing the same destination.
	ErrLocked = errors.New("mirror: destination is locked")

	// ErrDownload indicates a single component download failed.
	ErrDownload = errors.New("mirror: component download failed")

	// ErrHashMismatch indicates a file's MD5 does not match the catalog.
	ErrHashMismatch = errors.New("mirror: hash verification failed")

	// ErrStorageError indicates a filesystem operation failed.
	ErrStorageError = errors.New("mirror: storage error")

	// ErrInvalidConfig indicates the configuration file or values are invalid.
	ErrInvalidConfig = errors.New("mirror: invalid configuration")
)

// ComponentError describes a component that could not be downloaded.
// It is never fatal to a sync; it is recorded in SyncReport.Failed.
type ComponentError struct {
	// Name is the component's display name.
	Name string

	// Path is the component path relative to the catalog base location.
	Path string

	// URL is the download URL that was attempted.
	URL string

	// URLs are all URL references found inside the component element.
	URLs []string

	// Destination is the local file the component was to be written to.
	Destination string

	// Err is the underlying cause.
	Err error
}

func (e *ComponentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %q -> %s", ErrDownload.Error(), e.Name, e.Destination)
	if e.URL != "" {
		fmt.Fprintf(&b, " from %s", e.URL)
	}
	if len(e.URLs) > 0 {
		fmt.Fprintf(&b, " (urls: %s)", strings.Join(e.URLs, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap lets errors.Is match both ErrDownload and the underlying cause.
func (e *ComponentError) Unwrap() []error {
	return []error{ErrDownload, e.Err}
}
