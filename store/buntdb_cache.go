package store

import (
	"context"
	"errors"
	"time"

	"github.com/tidwall/buntdb"
)

// BuntCache is the embedded resolver cache, backed by an in-memory buntdb.
// Suitable for single-instance deployments; multi-instance setups should use
// the Valkey cache so invalidations reach every node.
type BuntCache struct {
	db     *buntdb.DB
	prefix string
}

// NewBuntCache opens an in-memory buntdb-backed cache.
func NewBuntCache() (*BuntCache, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &BuntCache{db: db, prefix: "resolved:"}, nil
}

func (c *BuntCache) key(userID string) string { return c.prefix + userID }

func (c *BuntCache) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	var val string
	err := c.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(c.key(userID))
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(val), true, nil
}

func (c *BuntCache) Set(ctx context.Context, userID string, payload []byte, ttl time.Duration) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		opts := &buntdb.SetOptions{}
		if ttl > 0 {
			opts.Expires = true
			opts.TTL = ttl
		}
		_, _, err := tx.Set(c.key(userID), string(payload), opts)
		return err
	})
}

func (c *BuntCache) Invalidate(ctx context.Context, userID string) error {
	err := c.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(c.key(userID))
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

func (c *BuntCache) Close() error { return c.db.Close() }
