package postgrest

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gregjones/httpcache"
	lru "github.com/hashicorp/golang-lru/v2"
)

// discoveryCacheEntries caps the number of cached OpenAPI responses across
// all projects and credentials.
const discoveryCacheEntries = 256

// Compile-time interface satisfaction checks.
var (
	_ httpcache.Cache = (*lruCache)(nil)
	_ httpcache.Cache = (*scopedCache)(nil)
)

// lruCache is an httpcache.Cache holding at most a fixed number of responses.
// The least recently used entry is evicted first.
type lruCache struct {
	entries *lru.Cache[string, []byte]
}

func newLRUCache(size int) *lruCache {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &lruCache{entries: entries}
}

func (c *lruCache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *lruCache) Set(key string, responseBytes []byte) {
	c.entries.Add(key, responseBytes)
}

func (c *lruCache) Delete(key string) {
	c.entries.Remove(key)
}

// Len reports the number of cached responses.
func (c *lruCache) Len() int {
	return c.entries.Len()
}

// scopedCache namespaces an httpcache.Cache by credential fingerprint.
type scopedCache struct {
	inner  httpcache.Cache
	prefix string
}

func newScopedCache(inner httpcache.Cache, credential string) *scopedCache {
	sum := sha256.Sum256([]byte(credential))
	return &scopedCache{inner: inner, prefix: hex.EncodeToString(sum[:8]) + "|"}
}

func (s *scopedCache) Get(key string) ([]byte, bool) {
	return s.inner.Get(s.prefix + key)
}

func (s *scopedCache) Set(key string, responseBytes []byte) {
	s.inner.Set(s.prefix+key, responseBytes)
}

func (s *scopedCache) Delete(key string) {
	s.inner.Delete(s.prefix + key)
}
