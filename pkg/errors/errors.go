package errors

import "errors"

// ErrVersionConflict optimistic lock failure: the row changed since the client read it.
var ErrVersionConflict = errors.New("the record was modified by another request, reload and retry")
