// Package files interns normalized paths into dense FileID handles.
package files

import (
	"fmt"
	"maps"

	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/ir"
)

// Table maps paths to FileIDs. Ids start at 1 and are never reused.
//
// Table is not safe for concurrent use; graph generation is single-threaded.
type Table struct {
	ids   map[fspath.Path]ir.FileID
	paths map[ir.FileID]fspath.Path
	next  ir.FileID
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		ids:   make(map[fspath.Path]ir.FileID),
		paths: make(map[ir.FileID]fspath.Path),
		next:  1,
	}
}

// FromReferenced rebuilds a table from a persisted ReferencedFiles map.
// New ids continue after the largest loaded id.
func FromReferenced(referenced map[ir.FileID]string) (*Table, error) {
	t := NewTable()
	for id, s := range referenced {
		if id == 0 {
			return nil, fmt.Errorf("file id 0 is reserved (path %q)", s)
		}
		p := fspath.Parse(s)
		if other, ok := t.ids[p]; ok {
			return nil, fmt.Errorf("path %q interned twice (ids %d and %d)", p, other, id)
		}
		t.ids[p] = id
		t.paths[id] = p
		if id >= t.next {
			t.next = id + 1
		}
	}
	return t, nil
}

// Intern returns the id for p, allocating one on first sight.
func (t *Table) Intern(p fspath.Path) ir.FileID {
	if id, ok := t.ids[p]; ok {
		return id
	}
	id := t.next
	t.next++
	t.ids[p] = id
	t.paths[id] = p
	return id
}

// InternAll interns every path in order.
func (t *Table) InternAll(paths []fspath.Path) []ir.FileID {
	ids := make([]ir.FileID, len(paths))
	for i, p := range paths {
		ids[i] = t.Intern(p)
	}
	return ids
}

// Lookup returns the id for p without allocating.
func (t *Table) Lookup(p fspath.Path) (ir.FileID, bool) {
	id, ok := t.ids[p]
	return id, ok
}

// Path returns the path interned under id.
func (t *Table) Path(id ir.FileID) (fspath.Path, bool) {
	p, ok := t.paths[id]
	return p, ok
}

// Len returns the number of interned paths.
func (t *Table) Len() int {
	return len(t.paths)
}

// Referenced returns a copy of the id -> path mapping in persisted form.
func (t *Table) Referenced() map[ir.FileID]string {
	out := make(map[ir.FileID]string, len(t.paths))
	for id, p := range t.paths {
		out[id] = p.String()
	}
	return out
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	return &Table{
		ids:   maps.Clone(t.ids),
		paths: maps.Clone(t.paths),
		next:  t.next,
	}
}
