package mirror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrFetch", ErrFetch, "mirror: catalog fetch failed"},
		{"ErrMalformedCatalog", ErrMalformedCatalog, "mirror: malformed catalog"},
		{"ErrNoModels", ErrNoModels, "mirror: no models given"},
		{"ErrNoProtocol", ErrNoProtocol, "mirror: no usable access protocol"},
		{"ErrDestinationMissing", ErrDestinationMissing, "mirror: destination directory does not exist"},
		{"ErrLocked", ErrLocked, "mirror: destination is locked"},
		{"ErrDownload", ErrDownload, "mirror: component download failed"},
		{"ErrHashMismatch", ErrHashMismatch, "mirror: hash verification failed"},
		{"ErrStorageError", ErrStorageError, "mirror: storage error"},
		{"ErrInvalidConfig", ErrInvalidConfig, "mirror: invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()

			// Verify message starts with "mirror: " prefix
			if !strings.HasPrefix(got, "mirror: ") {
				t.Errorf("%s: message %q does not have 'mirror: ' prefix", tt.name, got)
			}

			if got != tt.wantMsg {
				t.Errorf("%s: got %q, want %q", tt.name, got, tt.wantMsg)
			}
		})
	}
}

func TestErrorsIs(t *testing.T) {
	sentinels := []error{
		ErrFetch, ErrMalformedCatalog, ErrNoModels, ErrNoProtocol, ErrDestinationMissing,
		ErrLocked, ErrDownload, ErrHashMismatch, ErrStorageError, ErrInvalidConfig,
	}

	for _, sentinel := range sentinels {
		t.Run(sentinel.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("operation failed: %w", sentinel)
			if !errors.Is(wrapped, sentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", sentinel)
			}

			doubleWrapped := fmt.Errorf("outer context: %w", wrapped)
			if !errors.Is(doubleWrapped, sentinel) {
				t.Errorf("errors.Is(doubleWrapped, %v) = false, want true", sentinel)
			}
		})
	}
}

func TestComponentError(t *testing.T) {
	cause := errors.New("GET http://downloads.dell.com/FOLDER01/bios.exe: status 404")
	err := &ComponentError{
		Name:        "BIOS",
		Path:        "FOLDER01/bios.exe",
		URL:         "http://downloads.dell.com/FOLDER01/bios.exe",
		URLs:        []string{"https://www.dell.com/support/bios"},
		Destination: "/srv/mirror/FOLDER01/bios.exe",
		Err:         cause,
	}

	t.Run("message", func(t *testing.T) {
		want := `mirror: component download failed: "BIOS" -> /srv/mirror/FOLDER01/bios.exe` +
			` from http://downloads.dell.com/FOLDER01/bios.exe` +
			` (urls: https://www.dell.com/support/bios)` +
			`: GET http://downloads.dell.com/FOLDER01/bios.exe: status 404`
		if got := err.Error(); got != want {
			t.Errorf("Error() =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("unwrap", func(t *testing.T) {
		var wrapped error = fmt.Errorf("sync: %w", err)
		if !errors.Is(wrapped, ErrDownload) {
			t.Error("errors.Is(err, ErrDownload) = false")
		}
		if !errors.Is(wrapped, cause) {
			t.Error("errors.Is(err, cause) = false")
		}

		var cerr *ComponentError
		if !errors.As(wrapped, &cerr) || cerr.Path != "FOLDER01/bios.exe" {
			t.Errorf("errors.As() = %v", cerr)
		}
	})

	t.Run("minimal", func(t *testing.T) {
		e := &ComponentError{Name: "NIC", Destination: "/m/a.exe"}
		if got, want := e.Error(), `mirror: component download failed: "NIC" -> /m/a.exe`; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
		if errors.Is(e, ErrHashMismatch) {
			t.Error("unexpected match for ErrHashMismatch")
		}
	})
}
