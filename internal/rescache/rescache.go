// Package rescache provides an optional Redis-backed cache of a
// converged RIB, keyed by a hash of the three input files. A repeated
// run against unchanged inputs can skip propagation entirely and stream
// the cached RIB straight to the writer.
package rescache

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "bgpsim:rib:"
	entryTTL  = 48 * time.Hour
)

// Row is one converged RIB entry: an AS, a prefix, and its installed
// AS-path rendering (same shape internal/output writes to CSV).
type Row struct {
	ASN    uint32 `json:"asn"`
	Prefix string `json:"prefix"`
	ASPath string `json:"as_path"`
}

// Cache wraps a Redis client with the get/set pair the CLI needs.
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// New connects to redisURL. The connection is verified with a Ping so
// callers can fail fast on a bad URL rather than discover it mid-run.
func New(redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Cache{client: client, ctx: ctx}, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key hashes the contents of the relationships, announcements, and
// rov-asns files into one cache key with xxhash, a fast non-cryptographic
// hash already present in the module as an indirect dependency of
// go-redis.
func Key(paths ...string) (string, error) {
	h := xxhash.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", err
		}
		f.Close()
	}
	return keyPrefix + strconv.FormatUint(h.Sum64(), 16), nil
}

// Get returns the cached rows for key, or ok=false on a cache miss.
func (c *Cache) Get(key string) (rows []Row, ok bool, err error) {
	raw, err := c.client.Get(c.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

// Set stores rows under key with a two-day TTL.
func (c *Cache) Set(key string, rows []Row) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, raw, entryTTL).Err()
}
