package ports

import "errors"

// ErrConflict is returned by repositories when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflicting write")
