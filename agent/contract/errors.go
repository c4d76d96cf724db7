package contract

import "errors"

var (
	ErrConfig      = errors.New("service is not configured")
	ErrModelInvoke = errors.New("model invoke failed")
	ErrValidation  = errors.New("validation failed")
	ErrProvider    = errors.New("provider call failed")
)
