package store

import (
	"bytes"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	apperrors "github.com/gmsas95/healthplan/internal/errors"
)

// ==================== Lease Methods (BadgerDB) ====================

func leaseKey(name string) []byte {
	return []byte("lease:" + name)
}

// AcquireLease takes the named lease for owner until ttl elapses. It returns
// false without error when another owner holds it.
func (s *Store) AcquireLease(name, owner string, ttl time.Duration) (bool, error) {
	err := s.badger.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(leaseKey(name))
		if err == nil {
			held, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			if !bytes.Equal(held, []byte(owner)) {
				return apperrors.ErrLeaseHeld
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		e := badger.NewEntry(leaseKey(name), []byte(owner)).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrLeaseHeld), errors.Is(err, badger.ErrConflict):
		return false, nil
	default:
		return false, writeErr(err)
	}
}

// ReleaseLease drops the lease if owner still holds it.
func (s *Store) ReleaseLease(name, owner string) error {
	err := s.badger.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(leaseKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		held, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !bytes.Equal(held, []byte(owner)) {
			return nil
		}
		return txn.Delete(leaseKey(name))
	})
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// ==================== Cache Methods (BadgerDB) ====================

// SetCache stores value under key, expiring after ttl (0 keeps it forever).
func (s *Store) SetCache(key string, value []byte, ttl time.Duration) error {
	err := s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("cache:"+key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// GetCache returns the cached value and whether it was present.
func (s *Store) GetCache(key string) ([]byte, bool, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("cache:" + key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, readErr(err)
	}
	return val, true, nil
}

// DeleteCachePrefix removes every cached value whose key starts with prefix.
func (s *Store) DeleteCachePrefix(prefix string) error {
	full := []byte("cache:" + prefix)
	var keys [][]byte
	err := s.badger.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = full
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return readErr(err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := s.badger.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return writeErr(err)
		}
	}
	if err := wb.Flush(); err != nil {
		return writeErr(err)
	}
	return nil
}
