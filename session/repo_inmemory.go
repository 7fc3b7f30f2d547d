package session

import (
	"sync"

	apperrors "github.com/rentdesk/rentdesk/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is an in-memory implementation of Repo, used in tests and as
// a throwaway store when no data folder is configured.
type InMemoryRepo struct {
	mu        sync.RWMutex
	tokens    Tokens
	hasTokens bool
	state     string
	hasState  bool
	flags     Flags
	hasFlags  bool
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) SetTokens(tokens Tokens) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = tokens
	r.hasTokens = true
	return nil
}

func (r *InMemoryRepo) GetTokens() (Tokens, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasTokens {
		return Tokens{}, apperrors.ErrNoTokens
	}
	return r.tokens, nil
}

func (r *InMemoryRepo) ClearTokens() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = Tokens{}
	r.hasTokens = false
	return nil
}

func (r *InMemoryRepo) SetState(nonce string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = nonce
	r.hasState = true
	return nil
}

func (r *InMemoryRepo) GetState() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasState {
		return "", apperrors.ErrNoState
	}
	return r.state, nil
}

func (r *InMemoryRepo) ClearState() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = ""
	r.hasState = false
	return nil
}

func (r *InMemoryRepo) SetFlags(flags Flags) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags = flags
	r.hasFlags = true
	return nil
}

func (r *InMemoryRepo) GetFlags() (Flags, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasFlags {
		return Flags{}, apperrors.ErrNoFlags
	}
	return r.flags, nil
}

func (r *InMemoryRepo) ClearFlags() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags = Flags{}
	r.hasFlags = false
	return nil
}
