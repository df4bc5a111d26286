package kvstore

import "errors"

// ErrNotFound is returned when a lookup by primary key finds no record.
var ErrNotFound = errors.New("kvstore: not found")
