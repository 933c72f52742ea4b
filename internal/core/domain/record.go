package domain

import (
	"fmt"
	"regexp"
	"sort"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTable checks that a table name is safe to use in SQL and in paths.
func ValidateTable(table string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

// ValidateField checks that a field name is safe to embed in a filename.
func ValidateField(field string) error {
	if !identifierPattern.MatchString(field) || field == "id" {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

// Record is a persisted row: a primary key plus named string fields.
// Writes through Set are tracked as dirty until the record is saved.
type Record struct {
	Table string
	ID    int64

	fields map[string]string
	dirty  map[string]struct{}
	loaded bool
}

// NewRecord returns an unsaved record for table.
func NewRecord(table string) *Record {
	return &Record{
		Table:  table,
		fields: make(map[string]string),
		dirty:  make(map[string]struct{}),
	}
}

// Get returns the stored value of field, or "" when unset.
func (r *Record) Get(field string) string {
	return r.fields[field]
}

// Set assigns a field and marks it dirty.
func (r *Record) Set(field, value string) {
	r.fields[field] = value
	r.dirty[field] = struct{}{}
}

// Fields returns a copy of all field values.
func (r *Record) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// FieldNames returns the field names in sorted order.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for k := range r.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Dirty returns the names of fields changed since the last save, sorted.
func (r *Record) Dirty() []string {
	names := make([]string, 0, len(r.dirty))
	for k := range r.dirty {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IsDirty reports whether any field changed since the last save.
func (r *Record) IsDirty() bool {
	return len(r.dirty) > 0
}

// Loaded reports whether the record exists in the store.
func (r *Record) Loaded() bool {
	return r.loaded
}

// MarkSaved records a successful write under id and clears the dirty set.
func (r *Record) MarkSaved(id int64) {
	r.ID = id
	r.loaded = true
	r.dirty = make(map[string]struct{})
}

// LoadValues replaces every field with values read from the store.
func (r *Record) LoadValues(id int64, values map[string]string) {
	r.fields = make(map[string]string, len(values))
	for k, v := range values {
		r.fields[k] = v
	}
	r.MarkSaved(id)
}

// Unload forgets the stored identity, e.g. after the row has been deleted.
func (r *Record) Unload() {
	r.ID = 0
	r.loaded = false
}
