// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager hands out a lock per novel id so writes to one novel are serialized.
type LockManager struct {
	locks      map[int64]*LockInfo
	globalLock sync.Mutex
	lockTTL    time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// LockInfo wraps a lock with its bookkeeping.
type LockInfo struct {
	Mutex    sync.RWMutex
	LastUsed time.Time
	refs     int // callers waiting on or holding the lock; never cleaned while > 0
}

// NewLockManager creates a lock manager and starts background cleanup.
func NewLockManager() *LockManager {
	lm := &LockManager{
		locks:   make(map[int64]*LockInfo),
		lockTTL: 30 * time.Minute,
		stop:    make(chan struct{}),
	}
	go lm.cleanupLoop(5 * time.Minute)
	return lm
}

func (lm *LockManager) acquire(novelID int64) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, ok := lm.locks[novelID]
	if !ok {
		info = &LockInfo{}
		lm.locks[novelID] = info
	}
	info.refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	info.refs--
	info.LastUsed = time.Now()
	lm.globalLock.Unlock()
}

// ExecuteWithNovelLock runs fn under the novel's write lock.
func (lm *LockManager) ExecuteWithNovelLock(novelID int64, fn func() error) error {
	info := lm.acquire(novelID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithNovelReadLock runs fn under the novel's read lock.
func (lm *LockManager) ExecuteWithNovelReadLock(novelID int64, fn func() error) error {
	info := lm.acquire(novelID)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()
	return fn()
}

// Stop stops background cleanup.
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() { close(lm.stop) })
}

func (lm *LockManager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lm.cleanupUnusedLocks(time.Now())
		case <-lm.stop:
			return
		}
	}
}

// cleanupUnusedLocks drops idle locks nobody references.
func (lm *LockManager) cleanupUnusedLocks(now time.Time) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	removed := 0
	for id, info := range lm.locks {
		if info.refs == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.locks, id)
			removed++
		}
	}
	return removed
}
