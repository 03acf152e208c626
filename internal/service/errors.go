package service

import "errors"

var (
	ErrNotConfigured = errors.New("feature not configured")
	ErrUnknownGroup  = errors.New("unknown course group")
)
