package reminder

import "errors"

var (
	ErrDataAccess    = errors.New("reminder data access failed")
	ErrTransport     = errors.New("reminder relay delivery failed")
	ErrConfiguration = errors.New("reminder relay url is not configured")
)
