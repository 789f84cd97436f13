package config

import "errors"

// ErrInvalidConfig wraps every Load and Validate failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")
