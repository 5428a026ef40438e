package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessnet/internal/config"
	"github.com/hailam/chessnet/internal/game"
	"github.com/hailam/chessnet/internal/player"
	"github.com/hailam/chessnet/internal/protocol"
	"github.com/hailam/chessnet/internal/session"
	"github.com/hailam/chessnet/internal/storage"
	"github.com/hailam/chessnet/internal/util"
)

// ServerVersion is reported to clients in ServerInfo.
const ServerVersion = "1.0.0"

// Server ties the managers, the registry and the listener together.
type Server struct {
	cfg *config.Config

	games    *game.Manager
	players  *player.Manager
	sessions *session.Manager
	registry *ClientRegistry
	stats    *Statistics

	// store is optional; nil disables profile persistence.
	store *storage.PlayerStore

	// publishMu serializes game mutation and update fan-out so every
	// client observes game updates in the order moves were applied.
	publishMu sync.Mutex

	clock   util.Clock
	running atomic.Bool
}

// New wires a server from its configuration. store may be nil.
func New(cfg *config.Config, store *storage.PlayerStore) *Server {
	clock := util.SystemClock{}
	ids := util.RandomIDs{}

	return &Server{
		cfg:      cfg,
		games:    game.NewManager(clock, ids),
		players:  player.NewManager(clock, ids),
		sessions: session.NewManager(cfg.Security.SessionTimeoutSecs, clock, ids),
		registry: NewClientRegistry(),
		stats:    NewStatistics(clock.Now()),
		store:    store,
		clock:    clock,
	}
}

// Run listens on the configured address and serves until the context
// is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	s.running.Store(true)
	log.Noticef("listening on %s (message limit %s)", ln.Addr(),
		util.FormatBytes(uint64(s.cfg.Network.MaxMessageSize)))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()
		return ln.Close()
	})

	g.Go(func() error {
		s.cleanupLoop(ctx)
		return nil
	})

	g.Go(func() error {
		s.uptimeLoop(ctx)
		return nil
	})

	g.Go(func() error {
		return s.acceptLoop(ctx, ln)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil // clean shutdown
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || !s.running.Load() {
				return nil
			}
			return err
		}

		if s.registry.Count() >= s.cfg.Network.MaxConnections {
			log.Warningf("connection limit reached, rejecting %s", conn.RemoteAddr())
			conn.Close()
			continue
		}

		client := NewClient(
			conn,
			s.cfg.Network.OutboundQueueSize,
			time.Duration(s.cfg.Network.ConnectionTimeoutSecs)*time.Second,
			s.clock.Now(),
		)
		s.registry.Add(client)
		s.stats.ConnectionOpened(s.registry.Count())
		if s.cfg.Logging.LogConnections {
			log.Infof("client connected from %s (%d online)", client.RemoteIP(), s.registry.Count())
		}

		go client.WriteLoop()
		go func() {
			client.ReadLoop(func(line []byte) {
				s.handleLine(client, line)
			})
			s.dropClient(client, "connection closed")
		}()
	}
}

// dropClient tears down a lost connection. The player goes offline and
// the session stays alive until idle expiry, so a reconnect under the
// same name adopts both.
func (s *Server) dropClient(c *Client, reason string) {
	c.Close()
	s.registry.Remove(c)

	if pid := c.PlayerID(); pid != "" {
		s.publishMu.Lock()
		for _, g := range s.games.GamesForPlayer(pid) {
			if !g.IsFinished() {
				if err := g.RemovePlayer(pid); err == nil {
					s.notifyGameUpdate(g)
				}
			}
			s.players.RemoveFromGame(pid, g.ID)
		}
		s.publishMu.Unlock()
		s.players.SetStatus(pid, player.StatusOffline)
	}

	if s.cfg.Logging.LogConnections {
		log.Infof("client %s disconnected: %s", c.RemoteIP(), reason)
	}
}

// removeClient tears down a connection together with its player and
// session, for explicit disconnects and shutdown.
func (s *Server) removeClient(c *Client, reason string) {
	pid, sid := c.PlayerID(), c.SessionID()
	s.dropClient(c, reason)

	if pid != "" {
		s.players.Remove(pid)
	}
	if sid != "" {
		s.sessions.Remove(sid)
	}
}

// cleanupLoop periodically drops dead connections, expired sessions
// and stale finished games.
func (s *Server) cleanupLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.Game.CleanupIntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupOnce()
		}
	}
}

func (s *Server) cleanupOnce() {
	for _, c := range s.registry.CleanupDisconnected() {
		s.dropClient(c, "cleanup")
	}

	expired := s.sessions.CleanupExpired()
	for _, pid := range expired {
		s.players.Remove(pid)
	}
	cutoff := s.clock.Now() - s.cfg.Game.GameTimeoutSecs
	removedGames := s.games.RemoveFinishedBefore(cutoff)

	if len(expired) > 0 || removedGames > 0 {
		log.Infof("cleanup: %d sessions expired, %d finished games removed", len(expired), removedGames)
	}
}

func (s *Server) uptimeLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.stats.Snapshot(s.clock.Now())
			total, active, waiting := s.games.Count()
			log.Infof("up %s: %d clients, %d games (%d active, %d waiting), %d messages",
				util.FormatDuration(snap.UptimeSecs), s.registry.Count(),
				total, active, waiting, snap.TotalMessagesProcessed)
		}
	}
}

// Shutdown notifies clients and tears down every connection.
func (s *Server) Shutdown() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	log.Noticef("shutting down")

	notice := protocol.NewNotification(protocol.TypeDisconnect,
		protocol.DisconnectRequest{Reason: "server shutting down"})
	s.registry.Broadcast(notice)

	// Give writers a moment to flush the shutdown notice.
	time.Sleep(time.Second)

	for _, c := range s.registry.snapshot() {
		s.removeClient(c, "shutdown")
	}
}

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() StatisticsSnapshot {
	snap := s.stats.Snapshot(s.clock.Now())
	snap.RatingDistribution = s.players.RatingDistribution()
	return snap
}

func (s *Server) serverInfo() protocol.ServerInfo {
	_, active, _ := s.games.Count()
	return protocol.ServerInfo{
		Name:            "chessnet",
		Version:         ServerVersion,
		ProtocolVersion: protocol.Version,
		MaxMessageSize:  s.cfg.Network.MaxMessageSize,
		PlayersOnline:   s.players.Count(),
		ActiveGames:     active,
	}
}

// notifyGameUpdate pushes the game snapshot to both seated players.
func (s *Server) notifyGameUpdate(g *game.Game) {
	info := g.Snapshot()
	msg := protocol.NewNotification(protocol.TypeGameUpdate,
		protocol.GameUpdateNotification{Game: info})

	white, black := g.Players()
	s.registry.SendToPlayers([]string{white, black}, msg)
}
