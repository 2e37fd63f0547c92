package mirror

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// verifyHash compares an MD5 hex digest to the catalog's expected value.
// Returns nil if they match (ignoring case), ErrHashMismatch otherwise.
func verifyHash(actual, expected string) error {
	if !strings.EqualFold(actual, expected) {
		return ErrHashMismatch
	}
	return nil
}

// fileMD5 returns the lowercase MD5 hex digest of the file at path.
func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// downloader fetches component files one at a time.
type downloader struct {
	// httpClient is used for HTTP requests.
	httpClient HTTPClient

	// storage writes the downloaded files.
	storage storageInterface
}

// newDownloader creates a new downloader.
func newDownloader(client HTTPClient, storage storageInterface) *downloader {
	return &downloader{
		httpClient: client,
		storage:    storage,
	}
}

// fetch downloads rawURL into dest and returns the MD5 digest and size of
// what was written. dest is only replaced once the whole body was received.
// The onProgress callback receives cumulative bytes and the expected total
// (-1 if unknown).
func (d *downloader) fetch(ctx context.Context, rawURL, dest string, onProgress func(done, total int64)) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if onProgress != nil {
		reader = &progressReader{reader: resp.Body, total: resp.ContentLength, onProgress: onProgress}
	}

	return d.storage.writeStream(dest, reader)
}

// progressReader wraps an io.Reader and reports progress as bytes are read.
type progressReader struct {
	reader     io.Reader
	done       int64
	total      int64
	onProgress func(done, total int64)
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.done += int64(n)
		pr.onProgress(pr.done, pr.total)
	}
	return
}
