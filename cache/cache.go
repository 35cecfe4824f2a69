package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
}

const DefaultCacheSize = 1024

type LocalCache struct {
	*lru.Cache
}

func NewLocalCache(size uint64) (Cache, error) {
	cache, err := lru.New(int(size))
	if err != nil {
		return nil, err
	}
	return &LocalCache{
		cache,
	}, nil
}

func (c *LocalCache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

func (c *LocalCache) Set(key string, value interface{}) {
	c.Cache.Add(key, value)
}

// NoopCache never retains anything. It stands in when caching is disabled.
type NoopCache struct{}

func (NoopCache) Get(string) (interface{}, bool) { return nil, false }

func (NoopCache) Set(string, interface{}) {}

// New builds the cache selected by cacheType: "none" disables caching and
// anything else is an in-process LRU of the given size.
func New(cacheType string, size uint64) (Cache, error) {
	if cacheType == "none" {
		return NoopCache{}, nil
	}
	if size == 0 {
		size = DefaultCacheSize
	}
	return NewLocalCache(size)
}
