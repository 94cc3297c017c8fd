package httpds

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Download fetches rawURL into dir and returns the local path. The body is
// written to a temporary file that is renamed into place only once complete;
// an existing download with the same name is reused.
func (c *Client) Download(ctx context.Context, rawURL, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("httpds: download dir: %w", err)
	}
	dst := filepath.Join(dir, SafeFilenameFromURL(rawURL))
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("httpds: download %s: %w", rawURL, err)
	}
	_, err = io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("httpds: download %s: %w", rawURL, err)
	}
	return dst, nil
}
