package usecase

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrDuplicateName          = errors.New("duplicate group name")
	ErrIneligiblePlayer       = errors.New("player not eligible")
	ErrDuplicateParticipation = errors.New("player already participates")
	ErrDependencyUnavailable  = errors.New("dependency unavailable")
)
