// Package rootfile reads a flat TTree (the NanoAOD Events tree) from a ROOT
// file with the pure-Go groot reader.
//
// Every top-level read variable becomes one column. Variable-length leaves
// (a C array sized by another leaf) are jagged; the size leaf is reported as
// the column's CountedBy.
package rootfile

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"nanoconv/internal/datasource"
	"nanoconv/internal/schema"
)

func init() {
	datasource.Register("root", func(_ context.Context, cfg datasource.Config) (datasource.Source, error) {
		return Open(cfg.Location, cfg.TableName())
	})
}

// errStop ends a groot read early when the caller's context is done.
var errStop = errors.New("rootfile: stopped")

// Source is a datasource.Source over one TTree.
type Source struct {
	f       *riofs.File
	tree    rtree.Tree
	rvars   []rtree.ReadVar
	columns []schema.Column
}

// Open opens path and looks up the tree called name.
func Open(path, name string) (*Source, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rootfile: open %s: %w", path, err)
	}
	obj, err := f.Get(name)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("rootfile: %s: %w", path, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("rootfile: %s: %q is a %T, not a tree", path, name, obj)
	}

	s := &Source{f: f, tree: tree, rvars: rtree.NewReadVars(tree)}
	s.columns = columnsOf(tree, s.rvars)
	return s, nil
}

// columnsOf describes each read variable. Static arrays keep their length in
// the type name so they classify as Unknown rather than as a scalar.
func columnsOf(tree rtree.Tree, rvars []rtree.ReadVar) []schema.Column {
	leaves := make(map[string]rtree.Leaf)
	for _, b := range tree.Branches() {
		for _, l := range b.Leaves() {
			leaves[l.Name()] = l
		}
	}

	cols := make([]schema.Column, len(rvars))
	for i, rv := range rvars {
		c := schema.Column{Name: rv.Name}
		leaf := leaves[rv.Leaf]
		if leaf == nil {
			leaf = leaves[rv.Name]
		}
		if leaf != nil {
			c.TypeName = leaf.TypeName()
			if lc := leaf.LeafCount(); lc != nil {
				c.CountedBy = lc.Name()
			}
		}
		switch t := reflect.TypeOf(rv.Value).Elem(); t.Kind() {
		case reflect.Slice:
			c.Jagged = true
		case reflect.Array:
			c.TypeName = fmt.Sprintf("%s[%d]", c.TypeName, t.Len())
		}
		cols[i] = c
	}
	return cols
}

// Columns implements datasource.Source.
func (s *Source) Columns() []schema.Column { return s.columns }

// Len implements datasource.Source.
func (s *Source) Len(context.Context) (int64, error) { return s.tree.Entries(), nil }

// Scan implements datasource.Source.
func (s *Source) Scan(ctx context.Context, n int64, fn datasource.ScanFunc) error {
	total := s.tree.Entries()
	if n < 0 || n > total {
		n = total
	}
	if n == 0 {
		return nil
	}

	r, err := rtree.NewReader(s.tree, s.rvars, rtree.WithRange(0, n))
	if err != nil {
		return fmt.Errorf("rootfile: reader: %w", err)
	}
	defer r.Close()

	row := newRow(s.rvars)
	var cbErr error
	err = r.Read(func(rctx rtree.RCtx) error {
		if err := ctx.Err(); err != nil {
			cbErr = err
			return errStop
		}
		if err := fn(rctx.Entry, row); err != nil {
			cbErr = err
			return errStop
		}
		return nil
	})
	if cbErr != nil {
		return cbErr
	}
	if err != nil {
		return fmt.Errorf("rootfile: read: %w", err)
	}
	return nil
}

// Close implements datasource.Source.
func (s *Source) Close() error { return s.f.Close() }

// row reads the values groot decoded into the read variables.
type row struct {
	index map[string]int
	ptrs  []reflect.Value
}

func newRow(rvars []rtree.ReadVar) *row {
	r := &row{index: make(map[string]int, len(rvars)), ptrs: make([]reflect.Value, len(rvars))}
	for i, rv := range rvars {
		r.index[rv.Name] = i
		r.ptrs[i] = reflect.ValueOf(rv.Value)
	}
	return r
}

// Value implements datasource.Row. Jagged columns yield the slice groot
// filled for the current entry; it is reused for the next one.
func (r *row) Value(col string) (any, error) {
	i, ok := r.index[col]
	if !ok {
		return nil, fmt.Errorf("rootfile: no column %q", col)
	}
	return r.ptrs[i].Elem().Interface(), nil
}
