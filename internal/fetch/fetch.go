// Package fetch downloads remote images to local working files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a whole download, connection time included.
const DefaultTimeout = 30 * time.Second

// Client downloads URLs to files with a bounded overall timeout.
type Client struct {
	http *http.Client
}

// New returns a Client whose downloads abort after timeout. Zero or negative
// timeouts fall back to DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// DownloadToFile streams the body of rawURL into destPath without buffering
// the payload in memory. On any failure the partially written file is removed
// and a non-nil error is returned. Returns the number of bytes written.
func (c *Client) DownloadToFile(ctx context.Context, rawURL, destPath string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	log.Debug().Str("url", rawURL).Str("destPath", destPath).Msg("Downloading image")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close()
		os.Remove(destPath)
		return 0, fmt.Errorf("download: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("close file: %w", err)
	}

	log.Debug().Str("url", rawURL).Int64("bytes", written).Msg("Download complete")
	return written, nil
}
