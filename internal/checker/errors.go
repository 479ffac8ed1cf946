package checker

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoRoster        = errors.New("roster not loaded")
	ErrNoSources       = errors.New("no homework source added")
	ErrDuplicateSource = errors.New("source already added")
	ErrInvalidPath     = errors.New("invalid folder path")
	ErrBadArchive      = errors.New("failed to extract archive")
)
