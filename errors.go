package dispatch

import "errors"

// ErrSenderRequired is returned by New when Infra carries no mail sender.
var ErrSenderRequired = errors.New("dispatch: mail sender is required")
