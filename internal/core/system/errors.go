package system

import "errors"

var (
	ErrUnknownBucket    = errors.New("unknown bucket")
	ErrBucketExists     = errors.New("bucket already exists")
	ErrInvalidBucket    = errors.New("bucket name cannot be empty")
	ErrInvalidFrequency = errors.New("frequency must be positive")
	ErrNilCallback      = errors.New("callback cannot be nil")
	ErrLoopExists       = errors.New("loop already registered")
)
