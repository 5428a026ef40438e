// Package storage persists player profiles across connections using
// BadgerDB. The server runs fine without it; profiles then live only
// for the lifetime of a session.
package storage

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/player"
	"github.com/hailam/chessnet/internal/util"
)

const profilePrefix = "player:"

// Profile is the persisted record of an authenticated player, keyed by
// sanitized name.
type Profile struct {
	Name        string             `json:"name"`
	Stats       player.Stats       `json:"stats"`
	Preferences player.Preferences `json:"preferences"`
	CreatedAt   uint64             `json:"created_at"`
	UpdatedAt   uint64             `json:"updated_at"`
}

// PlayerStore wraps BadgerDB for player profile persistence.
type PlayerStore struct {
	db *badger.DB
}

// Open creates or opens a profile store in the given directory.
func Open(dir string) (*PlayerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logging is too chatty for a server log

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.IO(err.Error())
	}
	return &PlayerStore{db: db}, nil
}

// Close closes the database.
func (s *PlayerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func profileKey(name string) []byte {
	return []byte(profilePrefix + util.SanitizeName(name))
}

// SaveProfile writes a player's profile.
func (s *PlayerStore) SaveProfile(p *Profile) error {
	p.UpdatedAt = util.CurrentTimestamp()
	if p.CreatedAt == 0 {
		p.CreatedAt = p.UpdatedAt
	}

	data, err := json.Marshal(p)
	if err != nil {
		return errs.Serialization(err.Error())
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(p.Name), data)
	})
	if err != nil {
		return errs.IO(err.Error())
	}
	return nil
}

// LoadProfile reads a player's profile by name. A missing profile is
// not an error; it returns (nil, nil).
func (s *PlayerStore) LoadProfile(name string) (*Profile, error) {
	var profile *Profile

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var p Profile
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			profile = &p
			return nil
		})
	})
	if err != nil {
		return nil, errs.IO(err.Error())
	}
	return profile, nil
}

// DeleteProfile removes a player's profile.
func (s *PlayerStore) DeleteProfile(name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(profileKey(name))
	})
	if err != nil {
		return errs.IO(err.Error())
	}
	return nil
}

// ListProfiles returns every stored profile name.
func (s *PlayerStore) ListProfiles() ([]string, error) {
	var names []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(profilePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, errs.IO(err.Error())
	}
	return names, nil
}
