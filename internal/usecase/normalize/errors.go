package normalize

import "errors"

// ErrInvalidSchema signals transformer output without results and facets arrays.
var ErrInvalidSchema = errors.New("transformer output does not match schema")
