package domain

import "errors"

var (
	ErrInvalidSample = errors.New("invalid position sample")
	ErrPersistence   = errors.New("position persistence failed")
	ErrNotAssigned   = errors.New("no vehicle assigned")
	ErrAlreadyActive = errors.New("tracking session already active")
	ErrSensorFault   = errors.New("location sensor fault")
	ErrNotification  = errors.New("notification failed")
	ErrNotFound      = errors.New("not found")
)
