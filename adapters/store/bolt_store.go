package store

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/layer-3/wellness/ports"
)

var (
	credentialBucket = []byte("credentials")
	accessTokenKey   = []byte("access_token")
)

// BoltCredentialStore persists the access credential in a bbolt file so a
// restarted client resumes its session.
type BoltCredentialStore struct {
	db *bbolt.DB
}

var _ ports.CredentialStore = (*BoltCredentialStore)(nil)

// NewBoltCredentialStore returns a store backed by the given database.
func NewBoltCredentialStore(db *bbolt.DB) (*BoltCredentialStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating credential bucket: %w", err)
	}
	return &BoltCredentialStore{db: db}, nil
}

// NewBoltCredentialStoreFromFile opens a bbolt database at path.
func NewBoltCredentialStoreFromFile(path string, options *bbolt.Options) (*BoltCredentialStore, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewBoltCredentialStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying bbolt database.
func (s *BoltCredentialStore) Close() error {
	return s.db.Close()
}

func (s *BoltCredentialStore) Get(ctx context.Context) (string, error) {
	var token string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(credentialBucket).Get(accessTokenKey); v != nil {
			token = string(v)
		}
		return nil
	})
	return token, err
}

func (s *BoltCredentialStore) Set(ctx context.Context, token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(credentialBucket).Put(accessTokenKey, []byte(token))
	})
}

func (s *BoltCredentialStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(credentialBucket).Delete(accessTokenKey)
	})
}
