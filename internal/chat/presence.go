package chat

import (
	"context"
	"sync"
	"time"

	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/storage"
)

// PresenceStore tracks open connections per user. A user goes online with
// the first connection and offline, with last-seen set, when the last one
// closes. Guests are ignored and persistence errors are swallowed.
type PresenceStore struct {
	st  storage.Storage
	now func() time.Time

	mu    sync.Mutex
	conns map[uint]map[string]struct{}
}

func NewPresenceStore(st storage.Storage, now func() time.Time) *PresenceStore {
	if now == nil {
		now = time.Now
	}
	return &PresenceStore{st: st, now: now, conns: make(map[uint]map[string]struct{})}
}

func (p *PresenceStore) OnConnect(ctx context.Context, userID *uint, connID string) {
	if userID == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[*userID]
	if !ok {
		set = make(map[string]struct{})
		p.conns[*userID] = set
	}
	if _, dup := set[connID]; dup {
		return
	}
	set[connID] = struct{}{}
	if len(set) == 1 {
		p.persist(ctx, *userID, true, nil)
	}
}

func (p *PresenceStore) OnDisconnect(ctx context.Context, userID *uint, connID string) {
	if userID == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[*userID]
	if !ok {
		return
	}
	if _, tracked := set[connID]; !tracked {
		return
	}
	delete(set, connID)
	if len(set) > 0 {
		return
	}
	delete(p.conns, *userID)
	now := p.now()
	p.persist(ctx, *userID, false, &now)
}

// IsOnline reports whether this process holds a connection for the user.
func (p *PresenceStore) IsOnline(userID uint) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[userID]) > 0
}

// persist runs under p.mu so writes for one user land in event order.
func (p *PresenceStore) persist(ctx context.Context, userID uint, online bool, lastSeen *time.Time) {
	if err := p.st.SetUserPresence(ctx, userID, online, lastSeen); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Uint("user_id", userID).Bool("online", online).Msg("presence update failed")
	}
}
