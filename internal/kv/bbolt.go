// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package kv

import (
	"context"

	bolt "go.etcd.io/bbolt"
)

// bucketName is the single bbolt bucket all MusFuse keys live in; the
// KV namespace discipline (spec §3) is entirely a key-prefix convention
// layered on top, not separate buckets, so that ScanPrefix can walk one
// cursor.
var bucketName = []byte("musfuse")

// BoltStore is the Embedded KV backend (spec §6 kv_backend: Embedded),
// a single-file B+tree, the same embedded-store shape go-musicfox uses
// for its local cache.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, wrapBackendErr("kv.bbolt: open", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, wrapBackendErr("kv.bbolt: init bucket", err)
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, wrapBackendErr("kv.bbolt: get", err)
	}
	return value, value != nil, nil
}

func (b *BoltStore) Put(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
	return wrapBackendErr("kv.bbolt: put", err)
}

func (b *BoltStore) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	return wrapBackendErr("kv.bbolt: delete", err)
}

// ScanPrefix walks a single cursor inside one read transaction, so the
// result is a snapshot consistent at call time even if writers run
// concurrently afterwards.
func (b *BoltStore) ScanPrefix(_ context.Context, prefix string) ([]Pair, error) {
	var pairs []Pair
	p := []byte(prefix)
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(p); k != nil && hasPrefix(k, p); k, v = c.Next() {
			pairs = append(pairs, Pair{
				Key:   string(k),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapBackendErr("kv.bbolt: scan_prefix", err)
	}
	return pairs, nil
}

func (b *BoltStore) Close() error {
	return wrapBackendErr("kv.bbolt: close", b.db.Close())
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
