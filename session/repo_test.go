package session_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/roles"
	"github.com/rentdesk/rentdesk/session"
)

func repos(t *testing.T) map[string]session.Repo {
	t.Helper()

	boltRepo, err := session.NewBoltRepo(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltRepo.Close() })

	return map[string]session.Repo{
		"inmemory": session.NewInMemoryRepo(),
		"bolt":     boltRepo,
	}
}

func TestTokensRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetTokens()
			require.ErrorIs(t, err, apperrors.ErrNoTokens)

			tokens := session.NewTokens("A", "R", 3600, now)
			require.NoError(t, repo.SetTokens(tokens))

			got, err := repo.GetTokens()
			require.NoError(t, err)
			require.Equal(t, "A", got.AccessToken)
			require.Equal(t, "R", got.RefreshToken)
			require.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))

			// Overwrite is wholesale, no merge
			require.NoError(t, repo.SetTokens(session.NewTokens("A2", "", 60, now)))
			got, err = repo.GetTokens()
			require.NoError(t, err)
			require.Equal(t, "A2", got.AccessToken)
			require.Empty(t, got.RefreshToken)

			require.NoError(t, repo.ClearTokens())
			_, err = repo.GetTokens()
			require.ErrorIs(t, err, apperrors.ErrNoTokens)

			// Clearing again must not error
			require.NoError(t, repo.ClearTokens())
		})
	}
}

func TestNewTokensDefaultsExpiresIn(t *testing.T) {
	now := time.Now()
	tokens := session.NewTokens("A", "R", 0, now)
	require.Equal(t, 3600, tokens.ExpiresIn)
	require.True(t, tokens.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestTokensExpired(t *testing.T) {
	now := time.Now()

	fresh := session.NewTokens("A", "R", 3600, now)
	require.False(t, fresh.Expired(now))

	dead := session.NewTokens("A", "R", 10, now.Add(-time.Minute))
	require.True(t, dead.Expired(now))

	// Inside the leeway margin counts as expired
	dying := session.NewTokens("A", "R", 10, now)
	require.True(t, dying.Expired(now))
}

func TestStateLastWriteWins(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetState()
			require.ErrorIs(t, err, apperrors.ErrNoState)

			require.NoError(t, repo.SetState("nonce-1"))
			require.NoError(t, repo.SetState("nonce-2"))

			got, err := repo.GetState()
			require.NoError(t, err)
			require.Equal(t, "nonce-2", got)

			require.NoError(t, repo.ClearState())
			_, err = repo.GetState()
			require.ErrorIs(t, err, apperrors.ErrNoState)
			require.NoError(t, repo.ClearState())
		})
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetFlags()
			require.ErrorIs(t, err, apperrors.ErrNoFlags)

			flags := session.Flags{
				Authenticated: true,
				Role:          roles.RoleTenant,
				DisplayName:   "Jane Doe",
				Email:         "jane@example.com",
			}
			require.NoError(t, repo.SetFlags(flags))

			got, err := repo.GetFlags()
			require.NoError(t, err)
			require.Equal(t, flags, got)

			require.NoError(t, repo.ClearFlags())
			_, err = repo.GetFlags()
			require.ErrorIs(t, err, apperrors.ErrNoFlags)
			require.NoError(t, repo.ClearFlags())
		})
	}
}

func TestBoltRepoSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	now := time.Now().Truncate(time.Second)

	repo, err := session.NewBoltRepo(path)
	require.NoError(t, err)
	require.NoError(t, repo.SetTokens(session.NewTokens("A", "R", 3600, now)))
	require.NoError(t, repo.Close())

	reopened, err := session.NewBoltRepo(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetTokens()
	require.NoError(t, err)
	require.Equal(t, "A", got.AccessToken)
	require.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))
}
