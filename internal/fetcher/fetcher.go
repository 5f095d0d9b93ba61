package fetcher

import (
	"context"
	"fmt"
	"io"
)

// Fetcher defines the interface for downloading the register and its
// metadata page.
type Fetcher interface {
	// Download fetches the URL and returns the response body. Non-2xx
	// responses are reported as *StatusError.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and atomically replaces the file at path
	// with the body. Returns bytes written. The previous file is left intact
	// on any failure.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download: unexpected status %d from %s", e.StatusCode, e.URL)
}
