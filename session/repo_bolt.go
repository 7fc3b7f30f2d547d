package session

import (
	"encoding/json"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	apperrors "github.com/rentdesk/rentdesk/internal/errors"
)

var sessionBucket = []byte("session")

var _ Repo = (*BoltRepo)(nil)

// BoltRepo persists the session in a bbolt file so tokens and flags survive
// gateway restarts, the way the original portal's browser storage survived
// page reloads.
type BoltRepo struct {
	db *bolt.DB
}

// NewBoltRepo opens (creating if needed) the session database at path.
func NewBoltRepo(path string) (*BoltRepo, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[NewBoltRepo] bolt.Open")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[NewBoltRepo] create bucket")
	}
	return &BoltRepo{db: db}, nil
}

func (r *BoltRepo) Close() error {
	return r.db.Close()
}

func (r *BoltRepo) SetTokens(tokens Tokens) error {
	return r.put(KeyTokens, tokens)
}

func (r *BoltRepo) GetTokens() (Tokens, error) {
	var tokens Tokens
	if err := r.get(KeyTokens, &tokens, apperrors.ErrNoTokens); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

func (r *BoltRepo) ClearTokens() error {
	return r.delete(KeyTokens)
}

func (r *BoltRepo) SetState(nonce string) error {
	return r.put(KeyState, nonce)
}

func (r *BoltRepo) GetState() (string, error) {
	var nonce string
	if err := r.get(KeyState, &nonce, apperrors.ErrNoState); err != nil {
		return "", err
	}
	return nonce, nil
}

func (r *BoltRepo) ClearState() error {
	return r.delete(KeyState)
}

func (r *BoltRepo) SetFlags(flags Flags) error {
	return r.put(KeyFlags, flags)
}

func (r *BoltRepo) GetFlags() (Flags, error) {
	var flags Flags
	if err := r.get(KeyFlags, &flags, apperrors.ErrNoFlags); err != nil {
		return Flags{}, err
	}
	return flags, nil
}

func (r *BoltRepo) ClearFlags() error {
	return r.delete(KeyFlags)
}

func (r *BoltRepo) put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "[BoltRepo] marshal %s", key)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(key), data)
	})
}

func (r *BoltRepo) get(key string, out any, notFound error) error {
	var data []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sessionBucket).Get([]byte(key))
		if v != nil {
			data = append(data, v...)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "[BoltRepo] read %s", key)
	}
	if data == nil {
		return notFound
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "[BoltRepo] unmarshal %s", key)
	}
	return nil
}

func (r *BoltRepo) delete(key string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(key))
	})
}
