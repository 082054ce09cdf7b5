package stubapi

import "errors"

var (
	ErrInvalidCredentials = errors.New("No active account found with the given credentials")
	ErrInvalidToken       = errors.New("Given token not valid for any token type")
	ErrTokenExpired       = errors.New("Token is expired")
	ErrNotFound           = errors.New("Gatepass not found")
	ErrNotOwner           = errors.New("You can only modify your own gate passes")
	ErrWrongRole          = errors.New("You do not have permission to perform this action")
	ErrInvalidStatus      = errors.New("Gate pass cannot change from its current status")
	ErrReasonRequired     = errors.New("Rejection reason is required")
	ErrUnknownAction      = errors.New("Unknown action")
)
