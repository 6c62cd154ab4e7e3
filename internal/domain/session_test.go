package domain

import (
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestManager(maxDuration time.Duration) (*SessionManager, *manualClock) {
	clock := &manualClock{now: time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)}
	m := NewSessionManager(WithSessionClock(clock.Now), WithSessionRand(rand.New(rand.NewPCG(7, 7))))
	m.SetMaxSessionDuration(maxDuration)
	return m, clock
}

func TestSessionManagerDefaults(t *testing.T) {
	t.Parallel()

	m := NewSessionManager()
	assert.Equal(t, DefaultMaxSessions, m.MaxSessions())
	assert.Equal(t, DefaultMaxSessionDuration, m.MaxSessionDuration())
	assert.Zero(t, m.ActiveSessionCount())
}

func TestNewSessionIsActiveAndUnexpired(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(time.Second)

	for i := 0; i < 20; i++ {
		token := strconv.Itoa(i)
		m.NewSession(token)
		assert.True(t, m.IsActiveAndExpire(token), "token %s", token)
	}
	assert.Equal(t, 20, m.ActiveSessionCount())
}

func TestIsActiveAndExpireEvictsPermanently(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(time.Second)
	m.NewSession("a")

	clock.Advance(time.Second)
	assert.True(t, m.IsActiveAndExpire("a"), "age equal to the ttl is not expired")

	clock.Advance(time.Millisecond)
	assert.True(t, m.IsExpired("a"))
	assert.False(t, m.IsActiveAndExpire("a"))
	assert.False(t, m.IsActive("a"))
	assert.True(t, m.IsRetired("a"))

	clock.Advance(time.Hour)
	assert.False(t, m.IsActiveAndExpire("a"))

	m.NewSession("a")
	assert.True(t, m.IsActiveAndExpire("a"))
	assert.False(t, m.IsRetired("a"))
}

func TestIsActiveAndExpireUnknownToken(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(time.Second)
	assert.False(t, m.IsActiveAndExpire("ghost"))
	assert.False(t, m.IsExpired("ghost"))
	assert.False(t, m.IsRetired("ghost"))
}

func TestRecycleOldestExpiredPicksStrictlyOlderCreation(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(time.Second)

	m.NewSession("1")
	clock.Advance(200 * time.Millisecond)
	m.NewSession("2")
	clock.Advance(2500 * time.Millisecond)

	assert.False(t, m.IsActiveAndExpire("2"))
	assert.False(t, m.IsActiveAndExpire("1"))

	token, ok := m.RecycleOldestExpired()
	require.True(t, ok)
	assert.Equal(t, "1", token)

	token, ok = m.RecycleOldestExpired()
	require.True(t, ok)
	assert.Equal(t, "2", token)

	_, ok = m.RecycleOldestExpired()
	assert.False(t, ok)
}

func TestRecycleOldestExpiredNeverReturnsLiveSession(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(time.Second)

	m.NewSession("old")
	clock.Advance(2 * time.Second)
	m.NewSession("fresh")

	token, ok := m.RecycleOldestExpired()
	require.True(t, ok)
	assert.Equal(t, "old", token)
	assert.False(t, m.IsActive("old"))

	_, ok = m.RecycleOldestExpired()
	assert.False(t, ok)
	assert.True(t, m.IsActive("fresh"))
}

func TestRecycleOldestExpiredConsidersRetiredAndActive(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(time.Second)

	m.NewSession("active-old")
	clock.Advance(100 * time.Millisecond)
	m.NewSession("retired-newer")
	clock.Advance(5 * time.Second)
	require.False(t, m.IsActiveAndExpire("retired-newer"))

	token, ok := m.RecycleOldestExpired()
	require.True(t, ok)
	assert.Equal(t, "active-old", token)
}

func TestActiveSessionThatHasExpiredUsesCreationOrder(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(time.Second)

	_, ok := m.ActiveSessionThatHasExpired()
	assert.False(t, ok)

	m.NewSession("a")
	m.NewSession("b")
	clock.Advance(2 * time.Second)

	token, ok := m.ActiveSessionThatHasExpired()
	require.True(t, ok)
	assert.Equal(t, "a", token)
	assert.True(t, m.IsActive("a"), "lookup does not mutate state")

	m.NewSession("a")
	token, ok = m.ActiveSessionThatHasExpired()
	require.True(t, ok)
	assert.Equal(t, "b", token)
}

func TestTokenReturnsActiveSessionWhenFull(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(time.Minute)
	m.SetMaxSessions(5)

	created := map[string]bool{}
	for i := 0; i < 5; i++ {
		token := strconv.Itoa(i)
		m.NewSession(token)
		created[token] = true
	}

	for i := 0; i < 50; i++ {
		got := m.Token("5")
		assert.True(t, created[got], "got %q", got)
	}

	assert.Equal(t, "3", m.Token("3"))
}

func TestTokenReturnsCandidateWhenRoomRemains(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(time.Minute)
	m.SetMaxSessions(2)
	m.NewSession("a")

	assert.Equal(t, "b", m.Token("b"))
}

func TestRandomActiveToken(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(time.Minute)

	_, err := m.RandomActiveToken()
	require.ErrorIs(t, err, ErrNoActiveSessions)

	m.NewSession("x")
	m.NewSession("y")
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := m.RandomActiveToken()
		require.NoError(t, err)
		seen[token] = true
	}
	assert.Equal(t, map[string]bool{"x": true, "y": true}, seen)
}
