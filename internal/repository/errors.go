// Package repository holds the MySQL access layer.  Sentinel errors below
// let services tell a missing row apart from a driver failure; driver
// errors (duplicate keys, missing references) are wrapped and classified
// by apperr at the HTTP edge.
package repository

import "errors"

// ErrNotFound is returned when no row matches the requested id or lookup.
var ErrNotFound = errors.New("not found")
