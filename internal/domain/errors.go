package domain

import "github.com/cockroachdb/errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConnection       = errors.New("connection failed")
	ErrEmptySample      = errors.New("no rows to export")
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrUnknownSource    = errors.New("unknown source")
)
