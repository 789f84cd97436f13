package db

import "errors"

var (
	ErrParseConfig = errors.New("db: invalid connection string")
	ErrConnect     = errors.New("db: unable to connect")
	ErrHealthcheck = errors.New("db: healthcheck failed")
	ErrMigrate     = errors.New("db: migration failed")
)
