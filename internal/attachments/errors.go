package attachments

import "errors"

// ErrDisabled is returned by reads when no bucket is configured.
var ErrDisabled = errors.New("attachments: storage not configured")
