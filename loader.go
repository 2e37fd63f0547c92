package mirror

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// userAgent is sent with every request.
const userAgent = "dell-catalog-mirror"

// gzipPrefixLen is the number of bytes dropped from a decompressed catalog
// before UTF-16 decoding. The feed starts with a byte order mark.
const gzipPrefixLen = 2

// catalogClient retrieves and parses catalogs.
type catalogClient struct {
	// httpClient is used for HTTP requests.
	httpClient HTTPClient

	// timeout bounds a single catalog request. Zero means no limit.
	timeout time.Duration

	// logger receives diagnostic messages.
	logger Logger
}

// newCatalogClient creates a new catalog client.
func newCatalogClient(client HTTPClient, timeout time.Duration, logger Logger) *catalogClient {
	return &catalogClient{
		httpClient: client,
		timeout:    timeout,
		logger:     logger,
	}
}

// load reads the catalog from source, which is an http(s) URL, a file URL or
// a local path.
func (c *catalogClient) load(ctx context.Context, source string) (*Manifest, error) {
	if u, err := url.Parse(source); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return c.fetch(ctx, source)
		case "file":
			return c.readFile(u.Path)
		}
	}
	return c.readFile(source)
}

// fetch downloads and parses the catalog at rawURL.
func (c *catalogClient) fetch(ctx context.Context, rawURL string) (*Manifest, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("fetching catalog", "url", rawURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFetch, rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	c.logger.Debug("catalog received", "content_type", contentType, "bytes", len(body))

	text, err := decodeCatalog(contentType, body)
	if err != nil {
		return nil, err
	}
	return ParseManifest(bytes.NewReader(text))
}

// readFile parses a catalog stored on disk. The file is never decompressed.
func (c *catalogClient) readFile(path string) (*Manifest, error) {
	c.logger.Debug("reading catalog", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	text, err := stripBOM(data)
	if err != nil {
		return nil, err
	}
	return ParseManifest(bytes.NewReader(text))
}

// isGzip reports whether a Content-Type value denotes gzip data.
func isGzip(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "gzip")
}

// decodeCatalog turns a response body into UTF-8 document text.
//
// Gzip bodies are decompressed, the first two bytes are dropped and the rest
// is decoded as UTF-16LE. Any other body is used as is, apart from a leading
// byte order mark.
func decodeCatalog(contentType string, body []byte) ([]byte, error) {
	if !isGzip(contentType) {
		return stripBOM(body)
	}

	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrMalformedCatalog, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrMalformedCatalog, err)
	}
	if len(raw) < gzipPrefixLen {
		return nil, fmt.Errorf("%w: decompressed catalog is %d bytes", ErrMalformedCatalog, len(raw))
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	text, err := dec.Bytes(raw[gzipPrefixLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: utf-16: %v", ErrMalformedCatalog, err)
	}
	return text, nil
}

// stripBOM decodes data according to a leading UTF-8 or UTF-16 byte order
// mark and returns it unchanged when there is none.
func stripBOM(data []byte) ([]byte, error) {
	text, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}
	return text, nil
}

// ParseManifest parses catalog XML from r.
// Errors wrap ErrMalformedCatalog.
func ParseManifest(r io.Reader) (*Manifest, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charsetReader

	var m Manifest
	if err := d.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedCatalog)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}
	return &m, nil
}

// charsetReader honors the encoding named in the XML declaration. UTF-16
// labels pass through because the text has already been transcoded by the
// time it reaches the parser.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-16", "utf-16le", "utf-16be", "unicode":
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}
