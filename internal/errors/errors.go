// Package errors holds the sentinels shared by more than one session package.
package errors

import "errors"

var (
	// Authentication errors
	ErrNoAccessToken    = errors.New("no access token")
	ErrTokenExchange    = errors.New("token exchange failed")
	ErrAccessDenied     = errors.New("authorization denied by the user")
	ErrUnauthorizedUser = errors.New("unauthorized user")

	// Session errors
	ErrInvalidSession = errors.New("invalid session")
	ErrLoginCancelled = errors.New("login cancelled")
)
