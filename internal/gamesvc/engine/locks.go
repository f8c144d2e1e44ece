package engine

import "sync"

// roomLocks serializes gameplay actions per room code. Every action
// holds its room's mutex for the whole read-mutate-persist sequence so
// two concurrent asks cannot both read the same current round.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

func (r *roomLocks) lock(roomCode string) func() {
	r.mu.Lock()
	m, ok := r.locks[roomCode]
	if !ok {
		m = &sync.Mutex{}
		r.locks[roomCode] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
