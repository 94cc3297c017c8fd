package datasource

import (
	"bytes"
	"strings"
)

// SniffLen is the number of leading bytes Sniff looks at.
const SniffLen = 16

var (
	rootMagic   = []byte("root")
	sqliteMagic = []byte("SQLite format 3\x00")
)

// IsDSN reports whether location looks like a database connection string
// rather than a file.
func IsDSN(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}

// Sniff picks a source kind from a location and the first bytes of its
// content. It returns "" when nothing matches.
func Sniff(location string, head []byte) string {
	switch {
	case IsDSN(location):
		return "postgres"
	case bytes.HasPrefix(head, rootMagic):
		return "root"
	case bytes.HasPrefix(head, sqliteMagic):
		return "sqlite"
	}
	switch {
	case strings.HasSuffix(location, ".root"):
		return "root"
	case strings.HasSuffix(location, ".sqlite"), strings.HasSuffix(location, ".db"):
		return "sqlite"
	}
	return ""
}
