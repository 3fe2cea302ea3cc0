package event

import "errors"

var (
	// ErrInvalidTopic is returned when a topic is empty or malformed.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilHandler is returned when a nil listener is registered.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilFilter is returned when a nil filter predicate is registered.
	ErrNilFilter = errors.New("filter cannot be nil")

	// ErrMalformedEvent is returned when wire data cannot be decoded.
	ErrMalformedEvent = errors.New("malformed event")
)
