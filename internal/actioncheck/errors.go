package actioncheck

import "errors"

// ErrUnsupportedBackend is returned by Factory.Create for an unrecognized
// backend type.
var ErrUnsupportedBackend = errors.New("unsupported action-checker backend")
