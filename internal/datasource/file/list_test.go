package file

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadList_Basic(t *testing.T) {
	t.Parallel()

	content := `
# inputs for run 2018A
/data/nano_1.root
   # indented comment
https://example.org/nano_2.root

   postgres://u@db/nano
`
	path := writeTempFile(t, t.TempDir(), "list.txt", content)

	got, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList error: %v", err)
	}
	want := []string{
		"/data/nano_1.root",
		"https://example.org/nano_2.root",
		"postgres://u@db/nano",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadList(%q) = %#v, want %#v", path, got, want)
	}
}

func TestReadList_FileNotFound(t *testing.T) {
	t.Parallel()

	if _, err := ReadList("does-not-exist-12345.txt"); err == nil {
		t.Fatalf("expected error for missing file, got nil")
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.root", "")
	b := writeTempFile(t, dir, "b.root", "")
	writeTempFile(t, dir, "c.sqlite", "")
	list := writeTempFile(t, dir, "inputs.txt", "# extra\n"+b+"\nhttps://host/x.root?a=1\n")

	got, err := Expand([]string{filepath.Join(dir, "*.root"), a}, list)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []string{a, b, "https://host/x.root?a=1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expand = %#v, want %#v", got, want)
	}
}

func TestExpand_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		list string
	}{
		{"no match", []string{filepath.Join(dir, "*.root")}, ""},
		{"bad pattern", []string{"[x"}, ""},
		{"missing list", nil, filepath.Join(dir, "absent.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Expand(tt.args, tt.list); err == nil {
				t.Fatal("want error")
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"https://h/f.root":  true,
		"http://h/f.root":   true,
		"postgres://h/db":   false,
		"/data/nano.root":   false,
		"httpdata/f.sqlite": false,
	} {
		if got := IsRemote(in); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", in, got, want)
		}
	}
}
