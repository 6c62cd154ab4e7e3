package domain

import (
	"math"
	"math/rand/v2"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	DefaultMaxSessions        = math.MaxInt32
	DefaultMaxSessionDuration = 300 * time.Second
)

// SessionManager simulates a bounded pool of concurrent user sessions.
//
// Active sessions are kept in creation order: NewSession on a known token
// resets its clock and moves it to the back. Tokens evicted by
// IsActiveAndExpire move to a retired set, from which RecycleOldestExpired
// picks by creation time.
//
// A SessionManager is owned by a single generation goroutine and is not safe
// for concurrent use.
type SessionManager struct {
	active      *orderedmap.OrderedMap[string, time.Time]
	retired     *orderedmap.OrderedMap[string, time.Time]
	maxSessions int
	maxDuration time.Duration
	now         func() time.Time
	rand        *rand.Rand
}

type SessionOption func(*SessionManager)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithSessionRand(r *rand.Rand) SessionOption {
	return func(m *SessionManager) {
		if r != nil {
			m.rand = r
		}
	}
}

func NewSessionManager(opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		active:      orderedmap.New[string, time.Time](),
		retired:     orderedmap.New[string, time.Time](),
		maxSessions: DefaultMaxSessions,
		maxDuration: DefaultMaxSessionDuration,
		now:         time.Now,
		rand:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) MaxSessions() int {
	return m.maxSessions
}

func (m *SessionManager) SetMaxSessions(n int) {
	m.maxSessions = n
}

func (m *SessionManager) MaxSessionDuration() time.Duration {
	return m.maxDuration
}

func (m *SessionManager) SetMaxSessionDuration(d time.Duration) {
	m.maxDuration = d
}

func (m *SessionManager) ActiveSessionCount() int {
	return m.active.Len()
}

func (m *SessionManager) IsActive(token string) bool {
	_, ok := m.active.Get(token)
	return ok
}

func (m *SessionManager) IsExpired(token string) bool {
	created, ok := m.active.Get(token)
	if !ok {
		return false
	}
	return m.expired(created)
}

// IsRetired reports whether token was evicted by IsActiveAndExpire and has
// not been renewed or recycled since.
func (m *SessionManager) IsRetired(token string) bool {
	_, ok := m.retired.Get(token)
	return ok
}

// IsActiveAndExpire returns true for an active session within its TTL. An
// active session past its TTL is retired and reported as false.
func (m *SessionManager) IsActiveAndExpire(token string) bool {
	created, ok := m.active.Get(token)
	if !ok {
		return false
	}
	if !m.expired(created) {
		return true
	}

	m.active.Delete(token)
	m.retired.Set(token, created)
	return false
}

func (m *SessionManager) NewSession(token string) {
	m.retired.Delete(token)
	m.active.Set(token, m.now())
	_ = m.active.MoveToBack(token)
}

func (m *SessionManager) RandomActiveToken() (string, error) {
	n := m.active.Len()
	if n == 0 {
		return "", ErrNoActiveSessions
	}

	idx := m.rand.IntN(n)
	for pair := m.active.Oldest(); pair != nil; pair = pair.Next() {
		if idx == 0 {
			return pair.Key, nil
		}
		idx--
	}
	return "", ErrNoActiveSessions
}

// ActiveSessionThatHasExpired returns the first active token, in creation
// order, whose TTL has elapsed. It does not mutate state.
func (m *SessionManager) ActiveSessionThatHasExpired() (string, bool) {
	for pair := m.active.Oldest(); pair != nil; pair = pair.Next() {
		if m.expired(pair.Value) {
			return pair.Key, true
		}
	}
	return "", false
}

// RecycleOldestExpired removes and returns the expired token with the smallest
// creation time, considering both retired tokens and active tokens past their
// TTL.
func (m *SessionManager) RecycleOldestExpired() (string, bool) {
	var (
		oldest     string
		oldestTime time.Time
		found      bool
	)
	consider := func(token string, created time.Time) {
		if !found || created.Before(oldestTime) {
			oldest, oldestTime, found = token, created, true
		}
	}

	for pair := m.retired.Oldest(); pair != nil; pair = pair.Next() {
		consider(pair.Key, pair.Value)
	}
	for pair := m.active.Oldest(); pair != nil; pair = pair.Next() {
		if m.expired(pair.Value) {
			consider(pair.Key, pair.Value)
		}
	}

	if !found {
		return "", false
	}
	m.retired.Delete(oldest)
	m.active.Delete(oldest)
	return oldest, true
}

// Token picks the token to use for a fresh observation of candidate: the
// candidate itself while it is active or while there is room for another
// session, otherwise a random active token. It is the lookup for callers that
// only need capacity-bounded affinity; the row assembler applies the fuller
// revive-and-recycle policy instead. Token never starts a session.
func (m *SessionManager) Token(candidate string) string {
	if m.IsActive(candidate) {
		return candidate
	}
	if m.active.Len() >= m.maxSessions {
		if token, err := m.RandomActiveToken(); err == nil {
			return token
		}
	}
	return candidate
}

func (m *SessionManager) expired(created time.Time) bool {
	return m.now().Sub(created) > m.maxDuration
}
