package model

import (
	"strings"
	"time"
)

// DefaultColor is the value segment background used when none is supplied.
const DefaultColor = "#4F46E5"

// DefaultSchema is the schema assumed when a table reference has no separator.
const DefaultSchema = "public"

// MetricRecord is the persisted badge definition. CachedValue is the only
// field that changes after creation.
type MetricRecord struct {
	ID               string
	Endpoint         string
	PublicCredential string
	Label            string
	Color            string
	Kind             MetricKind
	Table            *TableRef
	Protected        bool
	CachedValue      *int64
	CreatedAt        time.Time
}

// HasCachedValue reports whether a cached count is available.
func (r *MetricRecord) HasCachedValue() bool {
	return r.CachedValue != nil
}

// TableRef identifies a table or view in the remote project.
type TableRef struct {
	Schema string
	Name   string
}

// ParseTableRef splits "schema.table" into its parts. Input without a dot is
// placed in the public schema. Only the first dot separates schema from name.
func ParseTableRef(s string) (TableRef, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TableRef{}, false
	}

	schema, name, found := strings.Cut(s, ".")
	if !found {
		return TableRef{Schema: DefaultSchema, Name: s}, true
	}

	schema = strings.TrimSpace(schema)
	name = strings.TrimSpace(name)
	if schema == "" || name == "" {
		return TableRef{}, false
	}
	return TableRef{Schema: schema, Name: name}, true
}

// IsPublic reports whether the table lives in the default schema.
func (t TableRef) IsPublic() bool {
	return t.Schema == "" || t.Schema == DefaultSchema
}

// String returns the table in "schema.table" form, omitting the default schema.
func (t TableRef) String() string {
	if t.IsPublic() {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// FullName always includes the schema.
func (t TableRef) FullName() string {
	schema := t.Schema
	if schema == "" {
		schema = DefaultSchema
	}
	return schema + "." + t.Name
}
