package domain

import "errors"

var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotAuthorized  = errors.New("health store authorization not granted")
	ErrStoreWrite     = errors.New("health store write failed")
	ErrNoPlan         = errors.New("no weekly package available")
	ErrPlanExpired    = errors.New("weekly package expired")
)
