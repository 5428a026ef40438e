package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/util"
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 { return c.now }

func newManager(timeout uint64) (*Manager, *fakeClock) {
	clock := &fakeClock{now: 1000}
	return NewManager(timeout, clock, util.RandomIDs{}), clock
}

func TestPermissionMatrix(t *testing.T) {
	assert.True(t, DefaultPermissions().Allows(ActionCreateGame))
	assert.True(t, DefaultPermissions().Allows(ActionChat))
	assert.False(t, DefaultPermissions().Allows(ActionModerate))

	guest := GuestPermissions()
	assert.False(t, guest.Allows(ActionCreateGame))
	assert.False(t, guest.Allows(ActionChat))
	assert.True(t, guest.Allows(ActionJoinGame))
	assert.True(t, guest.Allows(ActionSpectate))

	banned := BannedPermissions()
	for _, a := range []Action{ActionCreateGame, ActionJoinGame, ActionSpectate, ActionChat, ActionModerate, ActionAdmin} {
		assert.False(t, banned.Allows(a), "banned may not %s", a)
	}

	assert.True(t, AdminPermissions().Allows(ActionModerate), "admin implies moderator")
	assert.True(t, ModeratorPermissions().Allows(ActionModerate))
	assert.False(t, ModeratorPermissions().Allows(ActionAdmin))
}

func TestTokenBucketBurstAndRefill(t *testing.T) {
	b := NewTokenBucket(GuestBucketCapacity, GuestRefillPerSec, 1000)

	// A full guest bucket allows exactly 30 messages in one second.
	for i := 0; i < 30; i++ {
		require.True(t, b.Allow(1, 1000), "message %d should pass", i)
	}
	assert.False(t, b.Allow(1, 1000), "31st message in the same second is limited")

	// Half a token per second: after 2 seconds one message fits again.
	assert.False(t, b.Allow(1, 1001))
	assert.True(t, b.Allow(1, 1002))
	assert.False(t, b.Allow(1, 1002))
}

func TestTokenBucketCapacityCap(t *testing.T) {
	b := NewTokenBucket(30, 0.5, 1000)
	require.True(t, b.Allow(30, 1000))

	// A long idle stretch must not bank more than the capacity.
	assert.True(t, b.Allow(30, 100000))
	assert.False(t, b.Allow(1, 100000))
}

func TestCreateAndAdopt(t *testing.T) {
	m, _ := newManager(3600)

	s1, err := m.Create("alice", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, s1.Authenticated)
	assert.Equal(t, GuestPermissions(), s1.Permissions)

	// Reconnecting with the same player adopts the session.
	s2, err := m.Create("alice", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, s1.ID, s2.ID)
	assert.Equal(t, 1, m.Count())
}

func TestPerIPLimits(t *testing.T) {
	m, _ := newManager(3600)

	for i := 0; i < MaxTotalSessionsPerIP; i++ {
		_, err := m.Create(fmt.Sprintf("guest%d", i), "10.0.0.1")
		require.NoError(t, err)
	}

	_, err := m.Create("one-more", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, errs.KindRateLimitExceeded, errs.From(err).Kind)

	// Another IP is unaffected.
	_, err = m.Create("elsewhere", "10.0.0.2")
	assert.NoError(t, err)
}

func TestPerIPAuthenticatedLimit(t *testing.T) {
	m, _ := newManager(3600)

	var ids []string
	for i := 0; i < MaxTotalSessionsPerIP; i++ {
		s, err := m.Create(fmt.Sprintf("guest%d", i), "10.0.0.1")
		require.NoError(t, err, "guest creation is bound by the total cap only")
		ids = append(ids, s.ID)
	}

	for i := 0; i < MaxAuthSessionsPerIP; i++ {
		require.NoError(t, m.Authenticate(ids[i]))
	}

	err := m.Authenticate(ids[MaxAuthSessionsPerIP])
	require.Error(t, err, "authenticated cap is lower than the total cap")
	assert.Equal(t, errs.KindRateLimitExceeded, errs.From(err).Kind)

	// Re-authenticating an upgraded session does not take a new slot.
	assert.NoError(t, m.Authenticate(ids[0]))

	// Another IP is unaffected.
	other, err := m.Create("elsewhere", "10.0.0.2")
	require.NoError(t, err)
	assert.NoError(t, m.Authenticate(other.ID))
}

func TestGetReturnsDetachedCopy(t *testing.T) {
	m, _ := newManager(3600)

	s, err := m.Create("alice", "10.0.0.1")
	require.NoError(t, err)

	s.Permissions = AdminPermissions()

	fresh, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, GuestPermissions(), fresh.Permissions)
}

func TestAuthenticateUpgradesBucket(t *testing.T) {
	m, _ := newManager(3600)

	s, err := m.Create("alice", "10.0.0.1")
	require.NoError(t, err)
	require.NoError(t, m.Authenticate(s.ID))

	s, err = m.Get(s.ID)
	require.NoError(t, err)
	assert.True(t, s.Authenticated)
	assert.Equal(t, DefaultPermissions(), s.Permissions)
	assert.Equal(t, AuthBucketCapacity, s.Bucket.Capacity)

	// The authenticated budget covers 60 messages in a burst.
	for i := 0; i < 60; i++ {
		require.NoError(t, m.Consume(s.ID, 1), "message %d", i)
	}
	err = m.Consume(s.ID, 1)
	require.Error(t, err)
	assert.Equal(t, errs.KindRateLimitExceeded, errs.From(err).Kind)
}

func TestConsumeRefillsOverTime(t *testing.T) {
	m, clock := newManager(3600)

	s, err := m.Create("alice", "10.0.0.1")
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		require.NoError(t, m.Consume(s.ID, 1))
	}
	require.Error(t, m.Consume(s.ID, 1))

	clock.now += 2 // guest refill is 0.5/s
	assert.NoError(t, m.Consume(s.ID, 1))
	assert.Error(t, m.Consume(s.ID, 1))
}

func TestCanPerformAction(t *testing.T) {
	m, _ := newManager(3600)

	s, err := m.Create("alice", "10.0.0.1")
	require.NoError(t, err)

	err = m.CanPerformAction(s.ID, ActionCreateGame)
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientPermissions, errs.From(err).Kind)

	require.NoError(t, m.Authenticate(s.ID))
	assert.NoError(t, m.CanPerformAction(s.ID, ActionCreateGame))

	require.NoError(t, m.SetPermissions(s.ID, BannedPermissions()))
	assert.Error(t, m.CanPerformAction(s.ID, ActionJoinGame))
}

func TestCleanupExpired(t *testing.T) {
	m, clock := newManager(100)

	stale, err := m.Create("stale", "10.0.0.1")
	require.NoError(t, err)

	clock.now += 90
	fresh, err := m.Create("fresh", "10.0.0.2")
	require.NoError(t, err)

	clock.now += 60 // stale idle 150s, fresh idle 60s

	removed := m.CleanupExpired()
	assert.Equal(t, []string{"stale"}, removed)

	_, err = m.Get(stale.ID)
	assert.Error(t, err)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, m.Count())
}

func TestRemove(t *testing.T) {
	m, _ := newManager(3600)

	s, err := m.Create("alice", "10.0.0.1")
	require.NoError(t, err)

	m.Remove(s.ID)
	assert.Equal(t, 0, m.Count())

	_, err = m.GetByPlayer("alice")
	assert.Error(t, err)
}
