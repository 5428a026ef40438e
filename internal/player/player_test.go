package player

import (
	"math"
	"sync"
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

func newManager() *Manager {
	return NewManager(&fakeClock{now: 1000}, util.RandomIDs{})
}

func TestNewStats(t *testing.T) {
	s := NewStats()
	assert.Equal(t, uint32(DefaultRating), s.Rating)
	assert.Equal(t, uint32(DefaultRating), s.PeakRating)
	assert.Equal(t, uint32(math.MaxUint32), s.ShortestGame)
	assert.Zero(t, s.WinRate())
}

func TestRecordGame(t *testing.T) {
	s := NewStats()
	s.RecordGame(1, 40, 600)
	s.RecordGame(-1, 25, 300)
	s.RecordGame(0, 80, 1200)

	assert.Equal(t, uint32(3), s.GamesPlayed)
	assert.Equal(t, uint32(1), s.Wins)
	assert.Equal(t, uint32(1), s.Losses)
	assert.Equal(t, uint32(1), s.Draws)
	assert.Equal(t, uint32(25), s.ShortestGame)
	assert.Equal(t, uint32(80), s.LongestGame)
	assert.Equal(t, uint64(145), s.TotalMoves)
	assert.InDelta(t, 1.0/3.0, s.WinRate(), 1e-9)
}

func TestEloEqualRatings(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-9)

	winner := UpdateRating(1500, 1500, 1)
	loser := UpdateRating(1500, 1500, 0)
	assert.Equal(t, uint32(1516), winner)
	assert.Equal(t, uint32(1484), loser)
}

func TestEloFavoriteWins(t *testing.T) {
	// The favorite gains less than the 16 points of an even matchup.
	winner := UpdateRating(1600, 1400, 1)
	loser := UpdateRating(1400, 1600, 0)
	assert.Equal(t, uint32(1607), winner)
	assert.Equal(t, uint32(1393), loser)
}

func TestEloUnderdogWins(t *testing.T) {
	winner := UpdateRating(1400, 1600, 1)
	loser := UpdateRating(1600, 1400, 0)
	assert.Greater(t, winner-1400, uint32(16), "underdog gains more than an even win")
	assert.Less(t, loser, uint32(1600))
}

func TestEloFloor(t *testing.T) {
	assert.Equal(t, uint32(RatingFloor), UpdateRating(105, 2000, 0))
}

func TestRegisterSanitizesNames(t *testing.T) {
	m := newManager()

	p, err := m.Register("  Alice! The <Great>  ", false)
	require.NoError(t, err)
	assert.Equal(t, "AliceTheGreat", p.Name)
	assert.Equal(t, uint32(DefaultRating), p.Stats.Rating)
	assert.Equal(t, StatusOnline, p.Status)

	_, err = m.Register("!!!", false)
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidPlayerName, errs.From(err).Kind)

	_, err = m.Register("alicethegreat", false)
	require.NoError(t, err, "sanitized names are case sensitive")

	_, err = m.Register("AliceTheGreat", false)
	require.Error(t, err, "duplicate names rejected")
}

func TestRegisterTruncatesLongNames(t *testing.T) {
	m := newManager()

	p, err := m.Register("abcdefghijklmnopqrstuvwxyz", false)
	require.NoError(t, err)
	assert.Len(t, p.Name, 20)
}

func TestGetByName(t *testing.T) {
	m := newManager()

	p, err := m.Register("alice", false)
	require.NoError(t, err)

	found, err := m.GetByName("alice")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = m.GetByName("nobody")
	assert.Error(t, err)
}

func TestRemoveFreesName(t *testing.T) {
	m := newManager()

	p, err := m.Register("alice", false)
	require.NoError(t, err)
	require.NoError(t, m.Remove(p.ID))

	_, err = m.Get(p.ID)
	assert.Error(t, err)

	_, err = m.Register("alice", false)
	assert.NoError(t, err, "name becomes available again")
}

func TestGameCap(t *testing.T) {
	m := newManager()

	p, err := m.Register("alice", false)
	require.NoError(t, err)

	for i := 0; i < MaxConcurrentGames; i++ {
		require.NoError(t, m.AddToGame(p.ID, util.GenerateShortID(), 0))
	}

	err = m.AddToGame(p.ID, "one-too-many", 0)
	require.Error(t, err)
	assert.Equal(t, errs.KindTooManyGames, errs.From(err).Kind)
}

func TestGameCapTightenedByLimit(t *testing.T) {
	m := newManager()

	p, err := m.Register("alice", false)
	require.NoError(t, err)

	require.NoError(t, m.AddToGame(p.ID, "g1", 2))
	require.NoError(t, m.AddToGame(p.ID, "g2", 2))

	err = m.AddToGame(p.ID, "g3", 2)
	require.Error(t, err)
	assert.Equal(t, errs.KindTooManyGames, errs.From(err).Kind)
}

func TestAddRemoveGameUpdatesStatus(t *testing.T) {
	m := newManager()

	p, err := m.Register("alice", false)
	require.NoError(t, err)

	require.NoError(t, m.AddToGame(p.ID, "g1", 0))
	seated, err := m.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInGame, seated.Status)
	assert.True(t, seated.InGame("g1"))

	err = m.AddToGame(p.ID, "g1", 0)
	require.Error(t, err, "duplicate seat rejected")

	require.NoError(t, m.RemoveFromGame(p.ID, "g1"))
	freed, err := m.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, freed.Status)
	assert.False(t, freed.InGame("g1"))

	err = m.RemoveFromGame(p.ID, "g1")
	assert.Error(t, err)
}

func TestUpdateRatingsAfterGame(t *testing.T) {
	m := newManager()

	white, err := m.Register("white", false)
	require.NoError(t, err)
	black, err := m.Register("black", false)
	require.NoError(t, err)

	require.NoError(t, m.UpdateRatingsAfterGame(white.ID, black.ID, white.ID))
	w, err := m.Get(white.ID)
	require.NoError(t, err)
	b, err := m.Get(black.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1216), w.Stats.Rating)
	assert.Equal(t, uint32(1184), b.Stats.Rating)
	assert.Equal(t, uint32(1216), w.Stats.PeakRating, "peak follows new high")
	assert.Equal(t, uint32(DefaultRating), b.Stats.PeakRating, "peak keeps the old high")

	// Draws move unequal ratings toward each other.
	require.NoError(t, m.UpdateRatingsAfterGame(white.ID, black.ID, ""))
	w, err = m.Get(white.ID)
	require.NoError(t, err)
	b, err = m.Get(black.ID)
	require.NoError(t, err)
	assert.Less(t, w.Stats.Rating, uint32(1216))
	assert.Greater(t, b.Stats.Rating, uint32(1184))
}

func TestGetReturnsDetachedCopy(t *testing.T) {
	m := newManager()

	p, err := m.Register("alice", false)
	require.NoError(t, err)

	p.Stats.Rating = 9999
	p.CurrentGames = append(p.CurrentGames, "ghost")

	fresh, err := m.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultRating), fresh.Stats.Rating)
	assert.Empty(t, fresh.CurrentGames)
}

func TestConcurrentReadsAndStatUpdates(t *testing.T) {
	m := newManager()

	p, err := m.Register("alice", false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = m.UpdateStats(p.ID, func(s *Stats) { s.Rating++ })
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if snap, err := m.Get(p.ID); err == nil {
				_ = snap.Stats.Rating
				_ = len(snap.CurrentGames)
			}
		}
	}()
	wg.Wait()

	final, err := m.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultRating+500), final.Stats.Rating)
}

func TestClearGuestAndSetPreferences(t *testing.T) {
	m := newManager()

	p, err := m.Register("visitor", true)
	require.NoError(t, err)
	require.True(t, p.Guest)

	require.NoError(t, m.ClearGuest(p.ID))

	prefs := DefaultPreferences()
	prefs.ShowLegalMoves = false
	require.NoError(t, m.SetPreferences(p.ID, prefs))

	fresh, err := m.Get(p.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Guest)
	assert.False(t, fresh.Preferences.ShowLegalMoves)
}

func TestFindMatchPicksClosestRating(t *testing.T) {
	m := newManager()

	seeker, err := m.Register("seeker", false)
	require.NoError(t, err)
	near, err := m.Register("near", false)
	require.NoError(t, err)
	far, err := m.Register("far", false)
	require.NoError(t, err)

	require.NoError(t, m.UpdateStats(near.ID, func(s *Stats) { s.Rating = 1250 }))
	require.NoError(t, m.UpdateStats(far.ID, func(s *Stats) { s.Rating = 1800 }))

	match, err := m.FindMatch(seeker.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, near.ID, match.ID)

	_, err = m.FindMatch(seeker.ID, 40)
	assert.Error(t, err, "nobody within tolerance")
}

func TestFindMatchSkipsBusyPlayers(t *testing.T) {
	m := newManager()

	seeker, err := m.Register("seeker", false)
	require.NoError(t, err)
	busy, err := m.Register("busy", false)
	require.NoError(t, err)

	for i := 0; i < MaxAvailableGames; i++ {
		require.NoError(t, m.AddToGame(busy.ID, util.GenerateShortID(), 0))
	}

	_, err = m.FindMatch(seeker.ID, 1000)
	assert.Error(t, err, "no available opponent")
}

func TestSearch(t *testing.T) {
	m := newManager()

	for _, name := range []string{"alice", "alicia", "bob"} {
		_, err := m.Register(name, false)
		require.NoError(t, err)
	}

	results := m.Search("ali", 0)
	require.Len(t, results, 2)
	assert.Equal(t, "alice", results[0].Name)
	assert.Equal(t, "alicia", results[1].Name)

	results = m.Search("", 2)
	assert.Len(t, results, 2, "limit applies")
}

func TestRatingDistribution(t *testing.T) {
	m := newManager()

	a, _ := m.Register("a", false)
	b, _ := m.Register("b", false)
	c, _ := m.Register("c", false)
	require.NoError(t, m.UpdateStats(a.ID, func(s *Stats) { s.Rating = 1399 }))
	require.NoError(t, m.UpdateStats(b.ID, func(s *Stats) { s.Rating = 1250 }))
	require.NoError(t, m.UpdateStats(c.ID, func(s *Stats) { s.Rating = 1650 }))

	dist := m.RatingDistribution()
	assert.Equal(t, 2, dist[1200])
	assert.Equal(t, 1, dist[1600])
}
