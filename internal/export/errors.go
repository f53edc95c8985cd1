package export

import "errors"

var (
	// ErrInFlight means Export was called while a previous run on the
	// same engine had not finished. Runs are single-flight.
	ErrInFlight = errors.New("export already in progress")

	// ErrCancelled means the run was stopped by Cancel or context
	// cancellation before completing.
	ErrCancelled = errors.New("export cancelled")

	// ErrAudioCapture marks a failed audio attachment attempt. Never
	// fatal: the pipeline falls through its audio ladder and exports
	// silent as the last resort.
	ErrAudioCapture = errors.New("audio capture failed")

	// ErrFrameRender marks a frame that could not be decoded or
	// rendered. Recoverable: the frame is skipped and processing
	// continues.
	ErrFrameRender = errors.New("frame render failed")
)
