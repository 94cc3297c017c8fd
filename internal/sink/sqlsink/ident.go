package sqlsink

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ident turns a field or collection name into a portable SQL identifier:
// accents are stripped, every run of characters outside [A-Za-z0-9_]
// becomes one "_", and a leading digit gets a "c_" prefix. Case is kept
// unless lower is set.
func Ident(s string, lower bool) string {
	s = strings.TrimSpace(s)
	if lower {
		s = strings.ToLower(s)
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case !prevUnderscore:
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return name
}

// namer hands out identifiers unique within one table, case-insensitively,
// appending _2, _3, ... on collision.
type namer struct {
	lower bool
	used  map[string]bool
}

func newNamer(lower bool, reserved ...string) *namer {
	n := &namer{lower: lower, used: map[string]bool{}}
	for _, r := range reserved {
		n.used[strings.ToLower(r)] = true
	}
	return n
}

func (n *namer) name(s string) string {
	base := Ident(s, n.lower)
	name := base
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	n.used[strings.ToLower(name)] = true
	return name
}
