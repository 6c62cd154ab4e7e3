package domain

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrGeneratorContract    = errors.New("generator contract violation")
	ErrTokenExhaustion      = errors.New("session tokens exhausted")
	ErrSiblingLink          = errors.New("sibling link failed")
	ErrDelivery             = errors.New("delivery failed")
	ErrNoActiveSessions     = errors.New("no active sessions")
	ErrRunNotFound          = errors.New("run not found")
)
