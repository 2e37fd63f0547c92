package mirror

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestModelInfoString(t *testing.T) {
	tests := []struct {
		name string
		info ModelInfo
		want string
	}{
		{"brand and model", ModelInfo{Brand: "PowerEdge", Model: "R640"}, "PowerEdge R640"},
		{"model only", ModelInfo{Model: "R640"}, "R640"},
		{"brand only", ModelInfo{Brand: "PowerEdge"}, "PowerEdge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyncReportDirty(t *testing.T) {
	if (SyncReport{Kept: []string{"a"}, WouldDownload: []string{"b"}}).Dirty() {
		t.Error("Dirty() = true without downloads")
	}
	if !(SyncReport{Downloaded: []string{"a"}}).Dirty() {
		t.Error("Dirty() = false with a download")
	}
}

func TestSyncReportWarnings(t *testing.T) {
	r := SyncReport{
		Mismatched: []string{"A/a.exe"},
		Failed:     []*ComponentError{{Name: "B", Destination: "/m/B/b.exe", Err: errors.New("status 404")}},
		Skipped:    []string{"../c.exe"},
	}

	got := r.Warnings()
	if len(got) != 3 {
		t.Fatalf("Warnings() = %v, want 3 entries", got)
	}
	if got[0] != "checksum mismatch: A/a.exe" {
		t.Errorf("got[0] = %q", got[0])
	}
	if !strings.Contains(got[1], `"B"`) || !strings.HasSuffix(got[1], "status 404") {
		t.Errorf("got[1] = %q", got[1])
	}
	if got[2] != "skipped unusable path: ../c.exe" {
		t.Errorf("got[2] = %q", got[2])
	}

	if w := (SyncReport{}).Warnings(); len(w) != 0 {
		t.Errorf("Warnings() of empty report = %v", w)
	}
}

func TestSyncReportJSON(t *testing.T) {
	r := SyncReport{
		BaseURL:         "https://downloads.dell.com",
		Downloaded:      []string{"A/a.exe"},
		Failed:          []*ComponentError{{Name: "B"}},
		CatalogWritten:  true,
		BytesDownloaded: 42,
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{`"base_url":"https://downloads.dell.com"`, `"catalog_written":true`, `"bytes_downloaded":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON %s missing %s", out, want)
		}
	}
	if strings.Contains(out, "Failed") {
		t.Errorf("JSON should not carry raw failures: %s", out)
	}
}

func TestConfigLanguage(t *testing.T) {
	if got := (Config{}).language(); got != DefaultLanguage {
		t.Errorf("language() = %q, want %q", got, DefaultLanguage)
	}
	if got := (Config{Language: "de"}).language(); got != "de" {
		t.Errorf("language() = %q, want de", got)
	}
}
