package mirror

import (
	"net/http"
	"testing"
)

func TestSyncOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := newSyncConfig()
		if cfg.dryRun || cfg.confirm != nil || cfg.baseURL != "" || cfg.progressFn != nil {
			t.Errorf("newSyncConfig() = %+v, want zero values", cfg)
		}
	})

	t.Run("WithDryRun", func(t *testing.T) {
		cfg := newSyncConfig()
		WithDryRun()(cfg)
		if !cfg.dryRun {
			t.Error("dryRun = false after WithDryRun")
		}
	})

	t.Run("WithConfirm", func(t *testing.T) {
		cfg := newSyncConfig()
		called := false
		WithConfirm(func(SoftwareComponent) bool {
			called = true
			return true
		})(cfg)
		if cfg.confirm == nil {
			t.Fatal("confirm should be set")
		}
		cfg.confirm(SoftwareComponent{})
		if !called {
			t.Error("confirm should call the provided function")
		}
	})

	t.Run("WithBaseURL", func(t *testing.T) {
		cfg := newSyncConfig()
		WithBaseURL("http://mirror.local/dell")(cfg)
		if cfg.baseURL != "http://mirror.local/dell" {
			t.Errorf("baseURL = %q", cfg.baseURL)
		}
	})

	t.Run("WithProgress", func(t *testing.T) {
		cfg := newSyncConfig()
		var got SyncProgress
		WithProgress(func(p SyncProgress) { got = p })(cfg)
		if cfg.progressFn == nil {
			t.Fatal("progressFn should be set")
		}
		cfg.progressFn(SyncProgress{Phase: "download", Index: 3})
		if got.Phase != "download" || got.Index != 3 {
			t.Errorf("progressFn received %+v", got)
		}
	})
}

func TestWithHTTPClient(t *testing.T) {
	customClient := &http.Client{}
	cfg := newMirrorConfig()
	WithHTTPClient(customClient)(cfg)

	if cfg.httpClient != customClient {
		t.Error("httpClient should be the custom client")
	}
}

// testLogger records messages by level.
type testLogger struct {
	debug, info, warn, errs []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.debug = append(l.debug, msg) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.info = append(l.info, msg) }
func (l *testLogger) Warn(msg string, keysAndValues ...any)  { l.warn = append(l.warn, msg) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.errs = append(l.errs, msg) }

func TestWithLogger(t *testing.T) {
	logger := &testLogger{}
	cfg := newMirrorConfig()
	WithLogger(logger)(cfg)

	if cfg.logger != logger {
		t.Error("logger should be set")
	}
}

func TestNewMirror(t *testing.T) {
	t.Run("requires app name", func(t *testing.T) {
		if _, err := NewMirror(Config{}); err == nil {
			t.Error("NewMirror() error = nil, want error")
		}
	})

	t.Run("rejects unknown export encoding", func(t *testing.T) {
		if _, err := NewMirror(Config{AppName: "testapp", ExportEncoding: "ebcdic"}); err == nil {
			t.Error("NewMirror() error = nil, want error")
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		m, err := NewMirror(Config{AppName: "testapp"})
		if err != nil {
			t.Fatalf("NewMirror() error = %v", err)
		}
		impl := m.(*mirror)
		if impl.cfg.RequestTimeout != DefaultRequestTimeout {
			t.Errorf("RequestTimeout = %v, want %v", impl.cfg.RequestTimeout, DefaultRequestTimeout)
		}
		if impl.cfg.ExportEncoding != EncodingUTF8 {
			t.Errorf("ExportEncoding = %q, want %q", impl.cfg.ExportEncoding, EncodingUTF8)
		}
		if _, ok := impl.logger.(nopLogger); !ok {
			t.Errorf("logger = %T, want nopLogger", impl.logger)
		}
		if impl.httpClient == nil {
			t.Error("httpClient should default to a tuned client")
		}
	})
}
