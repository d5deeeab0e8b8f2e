package transport

import "errors"

// errCancelled is returned by RenderToPCM when the caller's cancel
// flag was observed set between blocks.
var errCancelled = errors.New("render cancelled")

// ErrCancelled is the exported sentinel callers can compare against.
var ErrCancelled = errCancelled
