// Command dell-catalog-mirror mirrors the Dell update catalog and the
// packages it references for a chosen set of server models.
//
// Configuration is read from the platform config file and from environment
// variables prefixed with DELL_CATALOG_MIRROR_, for example:
//   - DELL_CATALOG_MIRROR_SOURCE: catalog URL or local path
//   - DELL_CATALOG_MIRROR_DEST: mirror root for the sync command
//   - DELL_CATALOG_MIRROR_MODELS: comma separated model list
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	mirror "github.com/prethora/dell-catalog-mirror"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidArgs indicates invalid arguments or configuration.
	ExitInvalidArgs = 2

	// ExitFetchError indicates the catalog could not be retrieved.
	ExitFetchError = 3

	// ExitMalformedCatalog indicates the catalog could not be parsed.
	ExitMalformedCatalog = 4

	// ExitDestination indicates the destination is missing or locked.
	ExitDestination = 5

	// ExitStorageError indicates a filesystem operation failed.
	ExitStorageError = 7
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := mirror.Config{
		AppName: "dell-catalog-mirror",
	}

	cmd := mirror.NewCommand(cfg)
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(exitCodeFromError(err))
	}
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, mirror.ErrFetch):
		return ExitFetchError
	case errors.Is(err, mirror.ErrMalformedCatalog):
		return ExitMalformedCatalog
	case errors.Is(err, mirror.ErrNoProtocol):
		return ExitMalformedCatalog
	case errors.Is(err, mirror.ErrNoModels):
		return ExitInvalidArgs
	case errors.Is(err, mirror.ErrInvalidConfig):
		return ExitInvalidArgs
	case errors.Is(err, mirror.ErrDestinationMissing):
		return ExitDestination
	case errors.Is(err, mirror.ErrLocked):
		return ExitDestination
	case errors.Is(err, mirror.ErrStorageError):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}
