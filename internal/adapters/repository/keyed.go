package repository

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// keyedMutex hands out one mutex per key. Entries are reference counted and
// dropped when the last holder unlocks.
type keyedMutex struct {
	shards []keyedShard
}

type keyedShard struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex(shards int) *keyedMutex {
	k := &keyedMutex{shards: make([]keyedShard, shards)}
	for i := range k.shards {
		k.shards[i].locks = make(map[string]*keyedEntry)
	}
	return k
}

func (k *keyedMutex) shard(key string) *keyedShard {
	return &k.shards[xxhash.Sum64String(key)%uint64(len(k.shards))]
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	sh := k.shard(key)
	sh.mu.Lock()
	e, ok := sh.locks[key]
	if !ok {
		e = &keyedEntry{}
		sh.locks[key] = e
	}
	e.refs++
	sh.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		sh.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(sh.locks, key)
		}
		sh.mu.Unlock()
	}
}
