package index

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateID       = errors.New("record id already indexed")
	ErrDimensionMismatch = errors.New("point dimension does not match index")
	ErrAlreadyBuilt      = errors.New("index already holds entries")
)
