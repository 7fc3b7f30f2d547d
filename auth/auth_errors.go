package auth

import "errors"

var (
	StateMismatchErr  = errors.New("oauth state mismatch")
	NoRefreshTokenErr = errors.New("no refresh token stored")
	AuthExpiredErr    = errors.New("authentication expired")
	MissingEmailErr   = errors.New("no email in profile response")
)
