package mirror

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// encodeFeed produces a body in the published form: UTF-16LE with a byte
// order mark, gzip compressed.
func encodeFeed(t *testing.T, doc string) []byte {
	t.Helper()

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(doc))
	if err != nil {
		t.Fatalf("encoding utf-16: %v", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(utf16); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func newTestCatalogClient(t *testing.T) *catalogClient {
	t.Helper()
	return newCatalogClient(http.DefaultClient, 10*time.Second, nopLogger{})
}

func TestLoadGzipFeed(t *testing.T) {
	body := encodeFeed(t, sampleCatalog)

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/x-gzip")
		w.Write(body)
	}))
	defer server.Close()

	m, err := newTestCatalogClient(t).load(context.Background(), server.URL+"/catalog/Catalog.xml.gz")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if len(m.Bundles) != 3 || len(m.Components) != 5 {
		t.Errorf("got %d bundles and %d components, want 3 and 5", len(m.Bundles), len(m.Components))
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, userAgent)
	}
}

func TestLoadPlainXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(sampleCatalog))
	}))
	defer server.Close()

	m, err := newTestCatalogClient(t).load(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if m.BaseLocation != "downloads.dell.com" {
		t.Errorf("BaseLocation = %q", m.BaseLocation)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        []byte
		wantErr     error
	}{
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    []byte("missing"),
			wantErr: ErrFetch,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			wantErr: ErrFetch,
		},
		{
			name:        "bad gzip",
			status:      http.StatusOK,
			contentType: "application/gzip",
			body:        []byte("definitely not gzip"),
			wantErr:     ErrMalformedCatalog,
		},
		{
			name:        "not xml",
			status:      http.StatusOK,
			contentType: "text/xml",
			body:        []byte("<html><body>maintenance</body></html>"),
			wantErr:     ErrMalformedCatalog,
		},
		{
			name:        "empty body",
			status:      http.StatusOK,
			contentType: "text/xml",
			wantErr:     ErrMalformedCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				w.Write(tt.body)
			}))
			defer server.Close()

			_, err := newTestCatalogClient(t).load(context.Background(), server.URL)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestCatalogClient(t).load(context.Background(), url)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("load() error = %v, want ErrFetch", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "Catalog.xml")
	if err := os.WriteFile(plain, []byte(sampleCatalog), 0644); err != nil {
		t.Fatal(err)
	}

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(sampleCatalog))
	if err != nil {
		t.Fatal(err)
	}
	wide := filepath.Join(dir, "Catalog16.xml")
	if err := os.WriteFile(wide, utf16, 0644); err != nil {
		t.Fatal(err)
	}

	sources := map[string]string{
		"path":          plain,
		"file url":      "file://" + filepath.ToSlash(plain),
		"utf-16 bom":    wide,
		"utf-8 bom":     writeWithUTF8BOM(t, dir),
		"relative path": relativeTo(t, plain),
	}

	for name, source := range sources {
		t.Run(name, func(t *testing.T) {
			m, err := newTestCatalogClient(t).load(context.Background(), source)
			if err != nil {
				t.Fatalf("load(%q) error = %v", source, err)
			}
			if len(m.Components) != 5 {
				t.Errorf("len(Components) = %d, want 5", len(m.Components))
			}
		})
	}
}

func writeWithUTF8BOM(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "CatalogBOM.xml")
	data := append([]byte{0xEF, 0xBB, 0xBF}, sampleCatalog...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func relativeTo(t *testing.T, path string) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		t.Skipf("no relative path: %v", err)
	}
	return rel
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newTestCatalogClient(t).load(context.Background(), filepath.Join(t.TempDir(), "nope.xml"))
	if !errors.Is(err, ErrFetch) {
		t.Errorf("load() error = %v, want ErrFetch", err)
	}
}

func TestDecodeCatalog(t *testing.T) {
	t.Run("gzip utf-16", func(t *testing.T) {
		text, err := decodeCatalog("application/x-gzip", encodeFeed(t, "<Manifest/>"))
		if err != nil {
			t.Fatalf("decodeCatalog() error = %v", err)
		}
		if string(text) != "<Manifest/>" {
			t.Errorf("decodeCatalog() = %q, want <Manifest/>", text)
		}
	})

	t.Run("gzip too short", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte{0xFF})
		zw.Close()

		_, err := decodeCatalog("application/gzip", buf.Bytes())
		if !errors.Is(err, ErrMalformedCatalog) {
			t.Errorf("decodeCatalog() error = %v, want ErrMalformedCatalog", err)
		}
	})

	t.Run("plain passthrough", func(t *testing.T) {
		text, err := decodeCatalog("text/xml; charset=utf-8", []byte("<Manifest/>"))
		if err != nil {
			t.Fatalf("decodeCatalog() error = %v", err)
		}
		if string(text) != "<Manifest/>" {
			t.Errorf("decodeCatalog() = %q", text)
		}
	})
}

func TestIsGzip(t *testing.T) {
	tests := map[string]bool{
		"application/x-gzip":       true,
		"application/gzip":         true,
		"Application/X-GZIP":       true,
		"text/xml":                 false,
		"application/octet-stream": false,
		"":                         false,
	}
	for ct, want := range tests {
		if got := isGzip(ct); got != want {
			t.Errorf("isGzip(%q) = %v, want %v", ct, got, want)
		}
	}
}

func TestParseManifestCharset(t *testing.T) {
	// "Caf\xe9" is Latin-1 for "Café".
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<Manifest baseLocation=\"x\"><SoftwareComponent path=\"A/a.exe\">" +
		"<Name><Display lang=\"en\">Caf\xe9</Display></Name></SoftwareComponent></Manifest>"

	m, err := ParseManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if got := m.Components[0].DisplayName("en"); got != "Café" {
		t.Errorf("DisplayName() = %q, want Café", got)
	}
}
