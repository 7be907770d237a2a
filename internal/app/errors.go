package service

import "errors"

var (
	// ErrNotStarted is returned when events are submitted before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrDuplicateEvent is returned for an event id that was already accepted.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrBackpressure is returned when the event queue is full.
	ErrBackpressure = errors.New("event queue full")

	// ErrInvalidEvent is returned when an event's kind and payload disagree.
	ErrInvalidEvent = errors.New("invalid event")
)
