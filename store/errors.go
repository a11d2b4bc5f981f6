package store

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate resource")
	ErrAlreadyReviewed   = errors.New("prescription already reviewed")
	ErrInsufficientStock = errors.New("insufficient stock")
)
