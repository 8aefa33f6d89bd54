package chat

import "sync"

// UserLocks serializes dialog turns per user id.
type UserLocks struct {
	mutex sync.Mutex
	users map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewUserLocks() *UserLocks {
	return &UserLocks{users: make(map[string]*userLock)}
}

func (l *UserLocks) Lock(userID string) {
	l.mutex.Lock()
	lock, exists := l.users[userID]
	if !exists {
		lock = &userLock{}
		l.users[userID] = lock
	}
	lock.refs++
	l.mutex.Unlock()

	lock.mu.Lock()
}

func (l *UserLocks) Unlock(userID string) {
	l.mutex.Lock()
	lock, exists := l.users[userID]
	if !exists {
		l.mutex.Unlock()
		return
	}
	lock.refs--
	if lock.refs == 0 {
		delete(l.users, userID)
	}
	l.mutex.Unlock()

	lock.mu.Unlock()
}

// Len returns the number of users holding or waiting for a lock.
func (l *UserLocks) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.users)
}
