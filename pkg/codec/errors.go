package codec

import "errors"

// ErrMalformed covers any structurally invalid input to a decoder:
// bad magic, truncated stream, or a field that fails project
// validation on ingest (spec §7, "Input/validation").
var ErrMalformed = errors.New("malformed project file")
