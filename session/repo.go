package session

// Repo defines the local key-value store holding the session's tokens, the
// OAuth state nonce, and the derived session flags. Implementations must make
// each operation atomic with respect to interleaving; callers never hold
// locks across operations.
type Repo interface {
	// SetTokens overwrites the token record unconditionally
	SetTokens(tokens Tokens) error

	// GetTokens returns the record, or apperrors.ErrNoTokens when absent.
	// "Not present" and "present but expired" are distinct states; expiry is
	// the caller's check via Tokens.Expired.
	GetTokens() (Tokens, error)

	// ClearTokens removes the record. Idempotent.
	ClearTokens() error

	// SetState stores the OAuth state nonce, replacing any prior value
	SetState(nonce string) error

	// GetState returns the stored nonce, or apperrors.ErrNoState when absent
	GetState() (string, error)

	// ClearState removes the nonce. Idempotent.
	ClearState() error

	// SetFlags overwrites all session flags in one write
	SetFlags(flags Flags) error

	// GetFlags returns the flags, or apperrors.ErrNoFlags when absent
	GetFlags() (Flags, error)

	// ClearFlags removes the flags. Idempotent.
	ClearFlags() error
}
