package httpds

import (
	"fmt"
	"net/url"
	"path"
	"regexp"

	"github.com/zeebo/xxh3"
)

// unsafeChars matches runs of characters kept out of local file names.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// HashString returns the xxh3 hash of s as 16 hex digits.
func HashString(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

// SafeFilenameFromURL derives a local file name from rawURL: the last path
// element with unsafe characters replaced by "_", prefixed by a short hash of
// the whole URL so that inputs sharing a base name do not collide. URLs
// without a usable base name map to the hash alone.
func SafeFilenameFromURL(rawURL string) string {
	sum := HashString(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return sum
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return sum
	}
	clean := unsafeChars.ReplaceAllString(base, "_")
	if clean == "" || clean == "_" {
		return sum
	}
	return sum[:8] + "_" + clean
}
