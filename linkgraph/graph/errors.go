package graph

import "errors"

// ErrInvalidEdge is returned when an edge references a non-positive
// document ID.
var ErrInvalidEdge = errors.New("edge references an invalid document ID")
