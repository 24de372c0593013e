// internal/catalog/catalog.go
package catalog

import (
	"errors"
	"fmt"
	"time"

	"groot/internal/hasher"
	"groot/internal/storage"

	"github.com/dgraph-io/badger/v4"
)

type Kind string

const (
	KindBlob   Kind = "blob"
	KindCommit Kind = "commit"
)

// ObjectMeta describes an object as it was first written.
type ObjectMeta struct {
	Digest     hasher.Digest `json:"digest"`
	Kind       Kind          `json:"kind"`
	Size       int64         `json:"size"`
	Compressed bool          `json:"compressed"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (m *ObjectMeta) GetID() string {
	return string(m.Digest)
}

// Catalog is the Badger-backed index of every object in the store.
type Catalog struct {
	store *storage.BadgerStore
}

func New(db *badger.DB) *Catalog {
	return &Catalog{
		store: storage.NewBadgerStore(db, "object"),
	}
}

// Record stores meta the first time a digest is seen. Later calls for the
// same digest are no-ops, since objects never change.
func (c *Catalog) Record(meta ObjectMeta) error {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	err := c.store.Create(&meta)
	if errors.Is(err, storage.ErrExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("recording object %s: %w", meta.Digest, err)
	}
	return nil
}

// Lookup returns the metadata for d; ok is false when d was never recorded.
func (c *Catalog) Lookup(d hasher.Digest) (meta ObjectMeta, ok bool, err error) {
	err = c.store.Get(string(d), &meta)
	if errors.Is(err, storage.ErrNotFound) {
		return ObjectMeta{}, false, nil
	}
	if err != nil {
		return ObjectMeta{}, false, fmt.Errorf("looking up object %s: %w", d, err)
	}
	return meta, true, nil
}

// List returns all recorded objects in digest order.
func (c *Catalog) List() ([]ObjectMeta, error) {
	var metas []ObjectMeta
	if err := c.store.List(&metas); err != nil {
		return nil, err
	}
	return metas, nil
}
