package repository

import "errors"

// Sentinel errors returned by stores.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownMember   = errors.New("unknown member")
	ErrDuplicate       = errors.New("duplicate record")
	ErrVersionConflict = errors.New("settings version conflict")
	ErrWeekEvaluated   = errors.New("week already has recorded attendance")
)
