package searchcache

import "errors"

// ErrSlugExhausted is returned when no unique slug could be stored.
var ErrSlugExhausted = errors.New("could not allocate a unique slug")
