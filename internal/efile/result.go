package efile

import (
	"encoding/json"
	"maps"
	"slices"
)

// Result maps section names to tables. Names keeps the file order of the
// sections that produced the surviving tables.
type Result struct {
	tables map[string]*Table
	order  []string
}

// NewResult builds a Result from tables in order, later tables replacing
// earlier ones with the same name.
func NewResult(tables ...*Table) *Result {
	r := newResult()
	for _, t := range tables {
		r.put(t)
	}
	return r
}

func newResult() *Result {
	return &Result{tables: make(map[string]*Table)}
}

// put stores t, replacing any table with the same name. A replaced table
// gives up its position; the name moves to where the new table was found.
func (r *Result) put(t *Table) (replaced bool) {
	if _, replaced = r.tables[t.name]; replaced {
		r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == t.name })
	}
	r.tables[t.name] = t
	r.order = append(r.order, t.name)
	return replaced
}

// Get returns the table for name.
func (r *Result) Get(name string) (*Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Table returns the table for name, or nil.
func (r *Result) Table(name string) *Table {
	return r.tables[name]
}

// Names returns the table names in file order.
func (r *Result) Names() []string {
	return slices.Clone(r.order)
}

// Tables returns the tables in file order.
func (r *Result) Tables() []*Table {
	out := make([]*Table, len(r.order))
	for i, name := range r.order {
		out[i] = r.tables[name]
	}
	return out
}

// Map returns a copy of the name to table mapping.
func (r *Result) Map() map[string]*Table {
	return maps.Clone(r.tables)
}

// Len returns the number of tables.
func (r *Result) Len() int {
	return len(r.order)
}

// Equal reports whether both results hold equal tables in the same order.
func (r *Result) Equal(o *Result) bool {
	if r == nil || o == nil {
		return r == o
	}
	if !slices.Equal(r.order, o.order) {
		return false
	}
	for name, t := range r.tables {
		if !t.Equal(o.tables[name]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the tables as an array in file order.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Tables())
}

// MarshalYAML implements yaml.Marshaler.
func (r *Result) MarshalYAML() (interface{}, error) {
	return r.Tables(), nil
}
