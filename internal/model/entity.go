package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/tour-booking/internal/apperr"
)

// Kind tells the query builder how to cast a raw query-string value for a
// field before it is handed to the driver.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
	KindJSON
)

// Field binds one JSON attribute of an entity to its column.  Ptr points into
// the entity instance that produced the slice and is used both as a Scan
// destination and as an Exec argument.
//
// Flags:
//  ReadOnly  – never accepted from request payloads (id, derived values).
//  Immutable – accepted on create only.
//  Internal  – never selected, filtered or sorted through the query builder.
//  Aggregate – owned by a dedicated writer; full-row updates leave it alone.
type Field struct {
	Name      string
	Column    string
	Kind      Kind
	Ptr       any
	ReadOnly  bool
	Immutable bool
	Internal  bool
	Aggregate bool
}

// Entity is the capability set the generic store and handlers rely on.
type Entity interface {
	Identity() uint64
	SetIdentity(id uint64)
	Fields() []Field
	Validate() error
}

// Schema is the static description of an entity table.
type Schema struct {
	Table  string
	Name   string // envelope key, e.g. "tour"
	Fields []Field
}

// SchemaOf derives a Schema from a zero entity.  Field pointers are dropped.
func SchemaOf(table, name string, e Entity) Schema {
	fields := e.Fields()
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Ptr = nil
		out[i] = f
	}
	return Schema{Table: table, Name: name, Fields: out}
}

// Lookup finds a field by its JSON name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns lists every column, internal ones included.
func (s Schema) Columns() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Column)
	}
	return out
}

// CleanPayload strips keys that clients may not write.  On update, immutable
// keys are dropped as well.
func (s Schema) CleanPayload(payload map[string]any, update bool) {
	for _, f := range s.Fields {
		if f.ReadOnly || f.Internal || (update && f.Immutable) {
			delete(payload, f.Name)
		}
	}
}

// Merge applies a partial JSON payload onto dst.  Keys missing from the
// payload leave dst untouched.
func Merge(dst any, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return &apperr.CastError{Path: te.Field, Value: te.Value, Err: err}
		}
		return apperr.BadRequest(err.Error())
	}
	return nil
}

// Project keeps only the named keys (and id) of a serialized document.  A nil
// or empty list returns v unchanged.
func Project(v any, fields []string) (any, error) {
	if len(fields) == 0 {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(fields)+1)
	if id, ok := doc["id"]; ok {
		out["id"] = id
	}
	for _, f := range fields {
		if val, ok := doc[f]; ok {
			out[f] = val
		}
	}
	return out, nil
}
