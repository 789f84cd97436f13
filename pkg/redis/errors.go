package redis

import "errors"

var (
	ErrEmptyURL    = errors.New("redis: REDIS_URL is empty")
	ErrParseURL    = errors.New("redis: invalid connection URL")
	ErrConnect     = errors.New("redis: unable to connect")
	ErrHealthcheck = errors.New("redis: healthcheck failed")
)
