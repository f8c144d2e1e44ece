package registry

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Connection is the registry's record of one live socket. Values handed
// out by lookups are copies; the registry owns the live entry.
type Connection struct {
	SocketID    string    `json:"socket_id"`
	UserID      int64     `json:"user_id"` // 0 for guests
	RoomCode    string    `json:"room_code"`
	PlayerID    int64     `json:"player_id"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// ReconnectionHistory keeps a user's connect attempts inside the
// trailing window plus a ban expiry once abuse is detected. Entries are
// pruned lazily on every check; the record itself lives for the process
// lifetime.
type ReconnectionHistory struct {
	Attempts  []time.Time `json:"attempts"`
	BanExpiry time.Time   `json:"ban_expiry"` // zero value means not banned
}

// TrackResult is the admission decision for one connect. When
// SocketsToEvict is non-empty the caller must actually disconnect those
// sockets; the registry does not sever transport connections itself.
type TrackResult struct {
	Allowed        bool     `json:"allowed"`
	Reason         string   `json:"reason,omitempty"`
	SocketsToEvict []string `json:"sockets_to_evict,omitempty"`
}

const (
	ReasonBanned          = "Temporarily banned for connection abuse"
	ReasonTooManyAttempts = "Too many reconnection attempts"
)

// Config carries the abuse and inactivity thresholds. They are tunable
// constants, not structural requirements.
type Config struct {
	ReconnectWindow      time.Duration
	MaxReconnectAttempts int // ban triggers strictly above this count
	BanDuration          time.Duration
	InactivityThreshold  time.Duration
	SweepInterval        time.Duration
	Now                  func() time.Time
}

func DefaultConfig() Config {
	return Config{
		ReconnectWindow:      60 * time.Second,
		MaxReconnectAttempts: 5,
		BanDuration:          5 * time.Minute,
		InactivityThreshold:  60 * time.Second,
		SweepInterval:        30 * time.Second,
		Now:                  time.Now,
	}
}

// Registry tracks live socket connections, detects duplicate-user
// connections and reconnection abuse, and runs the inactivity sweep.
// None of its operations return errors; unknown identifiers are no-ops.
type Registry struct {
	mu        sync.Mutex
	conns     map[string]*Connection
	histories map[int64]*ReconnectionHistory
	cfg       Config

	monitoring bool
	stopSweep  chan struct{}
}

func NewRegistry() *Registry {
	return NewRegistryWithConfig(DefaultConfig())
}

func NewRegistryWithConfig(cfg Config) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		conns:     make(map[string]*Connection),
		histories: make(map[int64]*ReconnectionHistory),
		cfg:       cfg,
	}
}

// TrackConnection admits or rejects a connecting socket. Guests (userID
// 0) are exempt from the abuse checks and never evict anyone. For
// authenticated users the newest connection wins: previous sockets for
// the same user are dropped from the registry and listed for eviction.
func (r *Registry) TrackConnection(socketID string, userID int64) TrackResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()

	if userID != 0 {
		h := r.histories[userID]
		if h == nil {
			h = &ReconnectionHistory{}
			r.histories[userID] = h
		}
		h.prune(now, r.cfg.ReconnectWindow)

		if !h.BanExpiry.IsZero() {
			if now.Before(h.BanExpiry) {
				return TrackResult{Allowed: false, Reason: ReasonBanned}
			}
			h.BanExpiry = time.Time{}
		}

		if len(h.Attempts) > r.cfg.MaxReconnectAttempts {
			h.BanExpiry = now.Add(r.cfg.BanDuration)
			log.Warnf("user %d banned for reconnection abuse until %s", userID, h.BanExpiry)
			return TrackResult{Allowed: false, Reason: ReasonTooManyAttempts}
		}

		h.Attempts = append(h.Attempts, now)
	}

	var evict []string
	if userID != 0 {
		for id, c := range r.conns {
			if c.UserID == userID {
				evict = append(evict, id)
				delete(r.conns, id)
			}
		}
	}

	r.conns[socketID] = &Connection{
		SocketID:    socketID,
		UserID:      userID,
		ConnectedAt: now,
		LastSeen:    now,
	}

	return TrackResult{Allowed: true, SocketsToEvict: evict}
}

// HandleDisconnect removes the connection entry; unknown sockets are a no-op.
func (r *Registry) HandleDisconnect(socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, socketID)
}

// UpdateConnectionRoom binds (or clears, with roomCode "") the socket's
// room and player and touches last-seen. Unknown sockets are a no-op.
func (r *Registry) UpdateConnectionRoom(socketID string, roomCode string, playerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[socketID]
	if !ok {
		return
	}
	c.RoomCode = roomCode
	c.PlayerID = playerID
	c.LastSeen = r.cfg.Now()
}

func (r *Registry) UpdateLastSeen(socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[socketID]; ok {
		c.LastSeen = r.cfg.Now()
	}
}

func (r *Registry) GetConnection(socketID string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[socketID]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

func (r *Registry) GetAllConnections() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, *c)
	}
	return out
}

func (r *Registry) GetConnectedUsersCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// SocketsInRoom lists the socket ids currently bound to the room.
func (r *Registry) SocketsInRoom(roomCode string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sockets []string
	for id, c := range r.conns {
		if c.RoomCode == roomCode {
			sockets = append(sockets, id)
		}
	}
	return sockets
}

// SocketForPlayer resolves the socket bound to a player seat in a room,
// used for private delivery of secret assignments.
func (r *Registry) SocketForPlayer(roomCode string, playerID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.conns {
		if c.RoomCode == roomCode && c.PlayerID == playerID {
			return id, true
		}
	}
	return "", false
}

// GetUserBanStatus reports whether the user is currently banned,
// clearing an expired ban lazily.
func (r *Registry) GetUserBanStatus(userID int64) (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.histories[userID]
	if !ok || h.BanExpiry.IsZero() {
		return false, time.Time{}
	}
	if !r.cfg.Now().Before(h.BanExpiry) {
		h.BanExpiry = time.Time{}
		return false, time.Time{}
	}
	return true, h.BanExpiry
}

// GetUserReconnectionHistory returns the user's attempts still inside
// the trailing window, pruning expired entries.
func (r *Registry) GetUserReconnectionHistory(userID int64) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.histories[userID]
	if !ok {
		return nil
	}
	h.prune(r.cfg.Now(), r.cfg.ReconnectWindow)
	return append([]time.Time(nil), h.Attempts...)
}

// StartInactivityMonitoring begins the periodic sweep that evicts
// connections idle past the threshold. Starting twice is a no-op; the
// callback is invoked outside the registry lock.
func (r *Registry) StartInactivityMonitoring(evict func(socketID string)) {
	r.mu.Lock()
	if r.monitoring {
		r.mu.Unlock()
		return
	}
	r.monitoring = true
	r.stopSweep = make(chan struct{})
	stop := r.stopSweep
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(r.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for _, socketID := range r.sweepStale() {
					log.Infof("evicting inactive socket %s", socketID)
					evict(socketID)
				}
			case <-stop:
				return
			}
		}
	}()
}

// StopInactivityMonitoring is safe to call when monitoring never started.
func (r *Registry) StopInactivityMonitoring() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.monitoring {
		return
	}
	r.monitoring = false
	close(r.stopSweep)
	r.stopSweep = nil
}

func (r *Registry) sweepStale() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	var stale []string
	for id, c := range r.conns {
		if now.Sub(c.LastSeen) > r.cfg.InactivityThreshold {
			stale = append(stale, id)
			delete(r.conns, id)
		}
	}
	return stale
}

func (h *ReconnectionHistory) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	kept := h.Attempts[:0]
	for _, t := range h.Attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	h.Attempts = kept
}
