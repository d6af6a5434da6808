package model

import (
	"errors"
	"fmt"
)

var (
	// ErrImageRequired is returned when a classify request is missing the image payload.
	ErrImageRequired = errors.New("image is required")

	// ErrTextRequired is returned when a correction request is missing the text payload.
	ErrTextRequired = errors.New("text is required")

	// ErrNotInRoom is returned when a relay message arrives from a session that has not joined a room.
	ErrNotInRoom = errors.New("not in a room")

	// ErrWorkerExited is returned for every request that was pending when the classifier worker exited.
	ErrWorkerExited = errors.New("classifier worker exited")

	// ErrClassifyTimeout is returned when the classifier worker does not respond within the deadline.
	ErrClassifyTimeout = errors.New("classification timed out")
)

// ClassificationError is a domain-level failure reported by the classifier
// worker for a single request. It is not fatal to the worker.
type ClassificationError struct {
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %s", e.Reason)
}
