// Package file turns command-line input arguments into the list of
// locations a conversion run processes.
package file

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadList reads a list file: one location per line. Blank lines and lines
// starting with '#' are skipped; surrounding whitespace is trimmed.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file: read list: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("file: read list %s: %w", path, err)
	}
	return out, nil
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Expand resolves args, followed by the entries of listPath when it is set,
// into locations. Arguments with glob metacharacters are expanded and must
// match at least one file. URLs and DSNs pass through untouched. Duplicates
// are dropped keeping the first occurrence.
func Expand(args []string, listPath string) ([]string, error) {
	all := append([]string(nil), args...)
	if listPath != "" {
		listed, err := ReadList(listPath)
		if err != nil {
			return nil, err
		}
		all = append(all, listed...)
	}

	seen := make(map[string]bool, len(all))
	var out []string
	add := func(loc string) {
		if !seen[loc] {
			seen[loc] = true
			out = append(out, loc)
		}
	}
	for _, a := range all {
		if strings.Contains(a, "://") || !strings.ContainsAny(a, "*?[") {
			add(a)
			continue
		}
		matches, err := filepath.Glob(a)
		if err != nil {
			return nil, fmt.Errorf("file: pattern %q: %w", a, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("file: pattern %q matched no files", a)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}
