package queue

import (
	"errors"
)

var (
	// ErrDoubleStarted is returned when Start is called on a worker that
	// has already been started.
	//
	// Worker and CleanWorker follow a strict lifecycle and must not be
	// started more than once without being stopped.
	ErrDoubleStarted = errors.New("worker double start")

	// ErrDoubleStopped is returned when Stop is called on a worker that
	// is not currently running.
	ErrDoubleStopped = errors.New("worker double stop")

	// ErrStopTimeout is returned when a worker fails to shut down within
	// the provided timeout during Stop.
	//
	// In this case, the worker may still be terminating in the background.
	ErrStopTimeout = errors.New("worker stop timeout")
)
