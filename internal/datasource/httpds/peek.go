package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchFirstBytes returns up to n bytes from the start of url. It asks for a
// byte range and also caps the read, for servers that ignore Range.
func (c *Client) FetchFirstBytes(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: n must be > 0")
	}
	h := make(http.Header)
	h.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := c.Get(ctx, url, h)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("httpds: peek %s: %w", url, err)
	}
	return b, nil
}
