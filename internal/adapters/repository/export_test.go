package repository

import "context"

// SetBeforeCommit installs a hook between read and commit of RedisStore.Apply.
func SetBeforeCommit(s *RedisStore, f func(ctx context.Context, matchID string)) {
	s.beforeCommit = f
}

// HeldLocks reports how many per-match mutexes are currently allocated.
func HeldLocks(s *RedisStore) int {
	n := 0
	for i := range s.locks.shards {
		sh := &s.locks.shards[i]
		sh.mu.Lock()
		n += len(sh.locks)
		sh.mu.Unlock()
	}
	return n
}
