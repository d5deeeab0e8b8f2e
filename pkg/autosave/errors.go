package autosave

import "errors"

// ErrNoPath is returned by Controller.Flush when the controller was
// constructed without a destination path, e.g. an unsaved new project
// the user has not yet named.
var ErrNoPath = errors.New("autosave: no destination path configured")
