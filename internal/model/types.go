package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// JSONList is a slice persisted in a JSON column.
type JSONList[T any] []T

func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(l))
}

func (l *JSONList[T]) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*l = nil
		return err
	}
	return json.Unmarshal(raw, (*[]T)(l))
}

// Point is a GeoJSON point with a human readable address.  Coordinates are
// [longitude, latitude].
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
}

func (p Point) Value() (driver.Value, error) {
	if p.Type == "" {
		p.Type = "Point"
	}
	if len(p.Coordinates) != 2 {
		p.Coordinates = []float64{0, 0}
	}
	return json.Marshal(p)
}

func (p *Point) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		return err
	}
	return json.Unmarshal(raw, p)
}

// Location is a tour waypoint.
type Location struct {
	Point
	Day int `json:"day,omitempty"`
}

// Ref is a reference to another document.  It serializes as the bare id
// until Doc is filled in by population, then as the embedded document.
type Ref struct {
	ID  uint64
	Doc any
}

func NewRef(id uint64) Ref { return Ref{ID: id} }

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Doc != nil {
		return json.Marshal(r.Doc)
	}
	if r.ID == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts 7, "7" or {"id": 7}.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = Ref{}
		return nil
	}
	switch b[0] {
	case '{':
		var doc struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return err
		}
		return r.UnmarshalJSON(doc.ID)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("Invalid reference: %s", s)
		}
		*r = Ref{ID: id}
		return nil
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("Invalid reference: %s", b)
	}
	*r = Ref{ID: id}
	return nil
}

func (r Ref) Value() (driver.Value, error) {
	if r.ID == 0 {
		return nil, nil
	}
	return int64(r.ID), nil
}

func (r *Ref) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Ref{}
	case int64:
		*r = Ref{ID: uint64(v)}
	case uint64:
		*r = Ref{ID: v}
	case []byte:
		id, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return err
		}
		*r = Ref{ID: id}
	default:
		return fmt.Errorf("ref: unsupported scan type %T", src)
	}
	return nil
}

// Refs is a list of references stored as a JSON array of ids.
type Refs []Ref

func (rs Refs) IDs() []uint64 {
	out := make([]uint64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func (rs Refs) Value() (driver.Value, error) {
	return json.Marshal(rs.IDs())
}

func (rs *Refs) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*rs = nil
		return err
	}
	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	out := make(Refs, len(ids))
	for i, id := range ids {
		out[i] = Ref{ID: id}
	}
	*rs = out
	return nil
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unsupported JSON column type %T", src)
}
