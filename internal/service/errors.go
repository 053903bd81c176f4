package service

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrProjectNotFound = errors.New("project not found")
	ErrDuplicateEmail  = errors.New("a user with this email already exists")
)
