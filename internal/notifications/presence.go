package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"skillswap/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPresenceOnlineSetKey  = "ws:online_users"
	defaultPresenceLastSeenKeyNS = "ws:last_seen:"
	defaultPresenceTTL           = 90 * time.Second
	defaultOfflineGrace          = 5 * time.Second
	defaultReaperInterval        = 60 * time.Second
)

// PresenceConfig overrides presence keys and timings; zero values use defaults.
type PresenceConfig struct {
	OnlineSetKey       string
	LastSeenKeyPrefix  string
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
}

// Presence tracks which users have open notification sockets. Local counts
// answer for this replica; a Redis set plus per-user last-seen keys answer
// for the others. A user stays online for a grace period after their last
// socket closes so quick reconnects do not flap.
type Presence struct {
	rdb *redis.Client

	mu              sync.RWMutex
	localConnCounts map[uint]int
	offlineTimers   map[uint]*time.Timer

	onlineSetKey      string
	lastSeenKeyPrefix string
	lastSeenTTL       time.Duration
	offlineGrace      time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence creates a tracker and starts a Redis reaper when Redis is available.
func NewPresence(rdb *redis.Client, cfg PresenceConfig) *Presence {
	p := &Presence{
		rdb:               rdb,
		localConnCounts:   make(map[uint]int),
		offlineTimers:     make(map[uint]*time.Timer),
		onlineSetKey:      defaultPresenceOnlineSetKey,
		lastSeenKeyPrefix: defaultPresenceLastSeenKeyNS,
		lastSeenTTL:       defaultPresenceTTL,
		offlineGrace:      defaultOfflineGrace,
		stopCh:            make(chan struct{}),
	}
	if cfg.OnlineSetKey != "" {
		p.onlineSetKey = cfg.OnlineSetKey
	}
	if cfg.LastSeenKeyPrefix != "" {
		p.lastSeenKeyPrefix = cfg.LastSeenKeyPrefix
	}
	if cfg.LastSeenTTL > 0 {
		p.lastSeenTTL = cfg.LastSeenTTL
	}
	if cfg.OfflineGracePeriod > 0 {
		p.offlineGrace = cfg.OfflineGracePeriod
	}

	interval := defaultReaperInterval
	if cfg.ReaperInterval > 0 {
		interval = cfg.ReaperInterval
	}
	if p.rdb != nil {
		go p.reaperLoop(interval)
	}
	return p
}

// SetOfflineGracePeriod changes how long a user lingers online after disconnecting.
func (p *Presence) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.offlineGrace = d
	p.mu.Unlock()
}

func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		for userID, timer := range p.offlineTimers {
			timer.Stop()
			delete(p.offlineTimers, userID)
		}
		p.mu.Unlock()
	})
}

func (p *Presence) Register(ctx context.Context, userID uint) {
	p.mu.Lock()
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
		delete(p.offlineTimers, userID)
	}
	p.localConnCounts[userID]++
	p.mu.Unlock()

	p.Touch(ctx, userID)
}

// Touch refreshes the user's last-seen key.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	if err := p.rdb.SAdd(ctx, p.onlineSetKey, uid).Err(); err != nil {
		middleware.Logger.Warn("Presence SADD failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
	if err := p.rdb.SetEx(ctx, p.lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), p.lastSeenTTL).Err(); err != nil {
		middleware.Logger.Warn("Presence SETEX failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}

func (p *Presence) Unregister(ctx context.Context, userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.localConnCounts[userID]
	if !ok {
		return
	}
	if n > 1 {
		p.localConnCounts[userID] = n - 1
		return
	}
	delete(p.localConnCounts, userID)

	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
	}
	// Offline is deferred until the grace period passes; IsOnline keeps
	// answering true through the pending timer.
	p.offlineTimers[userID] = time.AfterFunc(p.offlineGrace, func() {
		p.finalizeOffline(ctx, userID)
	})
}

func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	p.mu.RLock()
	local := p.localConnCounts[userID] > 0
	_, lingering := p.offlineTimers[userID]
	p.mu.RUnlock()
	if local || lingering {
		return true
	}

	if p.rdb == nil {
		return false
	}
	exists, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

func (p *Presence) finalizeOffline(ctx context.Context, userID uint) {
	p.mu.Lock()
	delete(p.offlineTimers, userID)
	stillLocal := p.localConnCounts[userID] > 0
	p.mu.Unlock()
	if stillLocal || p.rdb == nil {
		return
	}

	_ = p.rdb.Del(ctx, p.lastSeenKey(userID)).Err()
	_ = p.rdb.SRem(ctx, p.onlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
}

// reapOnce drops set members whose last-seen key has expired.
func (p *Presence) reapOnce(ctx context.Context) {
	members, err := p.rdb.SMembers(ctx, p.onlineSetKey).Result()
	if err != nil {
		return
	}
	for _, raw := range members {
		id64, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			_ = p.rdb.SRem(ctx, p.onlineSetKey, raw).Err()
			continue
		}
		exists, existsErr := p.rdb.Exists(ctx, p.lastSeenKey(uint(id64))).Result()
		if existsErr != nil || exists > 0 {
			continue
		}
		_ = p.rdb.SRem(ctx, p.onlineSetKey, raw).Err()
	}
}

func (p *Presence) reaperLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(context.Background())
		}
	}
}

func (p *Presence) lastSeenKey(userID uint) string {
	return p.lastSeenKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}
