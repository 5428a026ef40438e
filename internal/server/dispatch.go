package server

import (
	"fmt"
	"strings"

	"github.com/hailam/chessnet/internal/board"
	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/game"
	"github.com/hailam/chessnet/internal/player"
	"github.com/hailam/chessnet/internal/protocol"
	"github.com/hailam/chessnet/internal/session"
	"github.com/hailam/chessnet/internal/storage"
	"github.com/hailam/chessnet/internal/util"
)

// handleLine decodes one inbound line, applies rate limiting and routes
// the message. Every request gets exactly one reply.
func (s *Server) handleLine(c *Client, line []byte) {
	msg, err := protocol.Decode(line)
	if err != nil {
		c.Send(protocol.NewError("", err))
		return
	}

	s.stats.MessageProcessed()

	// Connect opens the session; everything else spends its budget.
	if msg.Type.Type != protocol.TypeConnect {
		sid := c.SessionID()
		if sid == "" {
			c.Send(protocol.NewError(msg.ID, errs.AuthenticationFailed()))
			return
		}
		if err := s.sessions.Consume(sid, 1); err != nil {
			c.Send(protocol.NewError(msg.ID, err))
			return
		}
		s.players.Touch(c.PlayerID())
	}

	if reply := s.dispatch(c, msg); reply != nil {
		c.Send(reply)
	}
}

func (s *Server) dispatch(c *Client, msg *protocol.Message) *protocol.Message {
	switch msg.Type.Type {
	case protocol.TypeConnect:
		return s.handleConnect(c, msg)
	case protocol.TypeAuthenticate:
		return s.handleAuthenticate(c, msg)
	case protocol.TypeDisconnect:
		return s.handleDisconnect(c, msg)
	case protocol.TypeCreateGame:
		return s.handleCreateGame(c, msg)
	case protocol.TypeJoinGame:
		return s.handleJoinGame(c, msg)
	case protocol.TypeLeaveGame:
		return s.handleLeaveGame(c, msg)
	case protocol.TypeSpectateGame:
		return s.handleSpectateGame(c, msg)
	case protocol.TypeMakeMove:
		return s.handleMakeMove(c, msg)
	case protocol.TypeOfferDraw:
		return s.handleOfferDraw(c, msg)
	case protocol.TypeRespondToDraw:
		return s.handleRespondToDraw(c, msg)
	case protocol.TypeResign:
		return s.handleResign(c, msg)
	case protocol.TypeGetPlayerInfo:
		return s.handleGetPlayerInfo(c, msg)
	case protocol.TypeUpdatePreferences:
		return s.handleUpdatePreferences(c, msg)
	case protocol.TypeGetOnlinePlayers:
		return s.handleGetOnlinePlayers(c, msg)
	case protocol.TypeGetGameList:
		return s.handleGetGameList(c, msg)
	case protocol.TypeGetGameInfo:
		return s.handleGetGameInfo(c, msg)
	case protocol.TypeGetLegalMoves:
		return s.handleGetLegalMoves(c, msg)
	case protocol.TypeSendMessage:
		return s.handleSendMessage(c, msg)
	case protocol.TypePing:
		return protocol.NewResponse(msg.ID, protocol.TypePong, nil)
	case protocol.TypeHeartbeat:
		return nil // keepalive only, no reply
	case protocol.TypeRequestUndo, protocol.TypeRespondToUndo:
		// Undo is not offered on this server.
		return protocol.NewError(msg.ID, errs.UnsupportedMessageType(msg.Type.Type))
	default:
		return protocol.NewError(msg.ID, errs.UnsupportedMessageType(msg.Type.Type))
	}
}

func (s *Server) handleConnect(c *Client, msg *protocol.Message) *protocol.Message {
	if c.PlayerID() != "" {
		return protocol.NewError(msg.ID, errs.ActionNotAllowed("connection already established"))
	}

	req, err := protocol.Payload[protocol.ConnectRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	name := req.PlayerName
	guest := name == ""
	if guest {
		if s.cfg.Security.RequireAuthentication {
			return protocol.NewError(msg.ID, errs.AuthenticationFailed())
		}
		name = "Guest-" + s.idSuffix()
	}

	adopted := false
	p, err := s.players.Register(name, guest)
	if err != nil {
		// A player whose connection dropped keeps their registration;
		// reconnecting under the same name adopts it and its session.
		if existing, lookupErr := s.players.GetByName(name); lookupErr == nil {
			if _, live := s.registry.ByPlayer(existing.ID); !live && existing.Status == player.StatusOffline {
				p = existing
				adopted = true
			}
		}
		if !adopted {
			return protocol.NewError(msg.ID, err)
		}
		s.players.SetStatus(p.ID, player.StatusOnline)
	}

	rollback := func() {
		if adopted {
			s.players.SetStatus(p.ID, player.StatusOffline)
		} else {
			s.players.Remove(p.ID)
		}
	}

	sess, err := s.sessions.Create(p.ID, c.RemoteIP())
	if err != nil {
		rollback()
		return protocol.NewError(msg.ID, err)
	}

	if err := s.registry.Associate(c, p.ID, sess.ID); err != nil {
		rollback()
		if !adopted {
			s.sessions.Remove(sess.ID)
		}
		return protocol.NewError(msg.ID, err)
	}

	// A named connect is implicitly authenticated.
	if !guest {
		if err := s.authenticatePlayer(c, sess.ID, p); err != nil {
			s.registry.Disassociate(c)
			rollback()
			if !adopted {
				s.sessions.Remove(sess.ID)
			}
			return protocol.NewError(msg.ID, err)
		}
	}

	return protocol.NewResponse(msg.ID, protocol.TypeConnectResponse, protocol.ConnectResponse{
		SessionID:  sess.ID,
		PlayerID:   p.ID,
		ServerInfo: s.serverInfo(),
	})
}

func (s *Server) handleAuthenticate(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.AuthenticateRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	if req.PlayerName == "" {
		return protocol.NewError(msg.ID, errs.MissingRequiredField("player_name"))
	}

	p, err := s.players.Get(c.PlayerID())
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	if err := s.authenticatePlayer(c, c.SessionID(), p); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	// Re-read after the upgrade and profile restore.
	p, err = s.players.Get(p.ID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	sess, err := s.sessions.Get(c.SessionID())
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	return protocol.NewResponse(msg.ID, protocol.TypeAuthenticateResponse, protocol.AuthenticateResponse{
		PlayerID:         p.ID,
		PlayerInfo:       p.Display(),
		SessionExpiresAt: sess.LastActivity + s.cfg.Security.SessionTimeoutSecs,
	})
}

// authenticatePlayer upgrades the session and restores the player's
// persisted profile if one exists.
func (s *Server) authenticatePlayer(c *Client, sessionID string, p *player.Player) error {
	if err := s.sessions.Authenticate(sessionID); err != nil {
		return err
	}
	c.SetState(StateAuthenticated)
	if err := s.players.ClearGuest(p.ID); err != nil {
		return err
	}

	if s.store != nil {
		profile, err := s.store.LoadProfile(p.Name)
		if err != nil {
			log.Warningf("load profile %s: %v", p.Name, err)
		} else if profile != nil {
			s.players.SetProfile(p.ID, profile.Stats, profile.Preferences)
		}
	}
	return nil
}

func (s *Server) handleDisconnect(c *Client, msg *protocol.Message) *protocol.Message {
	req, _ := protocol.Payload[protocol.DisconnectRequest](msg)
	reason := req.Reason
	if reason == "" {
		reason = "client requested disconnect"
	}

	go s.removeClient(c, reason)
	return protocol.NewSuccess(msg.ID, "goodbye")
}

func (s *Server) handleCreateGame(c *Client, msg *protocol.Message) *protocol.Message {
	if err := s.sessions.CanPerformAction(c.SessionID(), session.ActionCreateGame); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	req, err := protocol.Payload[protocol.CreateGameRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	p, err := s.players.Get(c.PlayerID())
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	total, _, _ := s.games.Count()
	if total >= s.cfg.Game.MaxConcurrentGames {
		return protocol.NewError(msg.ID, errs.ServerOverloaded())
	}

	var tc string
	if req.TimeControl != nil {
		tc = fmt.Sprintf("%d+%d", req.TimeControl.InitialSecs, req.TimeControl.IncrementSecs)
	}

	g := s.games.Create(req.Rated, tc)
	color, err := g.AddPlayer(p.ID, parseColorPref(req.ColorPreference))
	if err != nil {
		s.games.Remove(g.ID)
		return protocol.NewError(msg.ID, err)
	}
	if err := s.players.AddToGame(p.ID, g.ID, s.cfg.Game.MaxGamesPerPlayer); err != nil {
		s.games.Remove(g.ID)
		return protocol.NewError(msg.ID, err)
	}

	s.stats.GameCreated()
	if s.cfg.Logging.LogGames {
		log.Infof("game %s created by %s (%s)", g.ID, p.Name, color)
	}

	return protocol.NewResponse(msg.ID, protocol.TypeCreateGameResponse, protocol.CreateGameResponse{
		GameID:      g.ID,
		PlayerColor: strings.ToLower(color.String()),
	})
}

func (s *Server) handleJoinGame(c *Client, msg *protocol.Message) *protocol.Message {
	if err := s.sessions.CanPerformAction(c.SessionID(), session.ActionJoinGame); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	req, err := protocol.Payload[protocol.JoinGameRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	p, err := s.players.Get(c.PlayerID())
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	color, err := g.AddPlayer(p.ID, parseColorPref(req.ColorPreference))
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	if err := s.players.AddToGame(p.ID, g.ID, s.cfg.Game.MaxGamesPerPlayer); err != nil {
		g.RemovePlayer(p.ID)
		return protocol.NewError(msg.ID, err)
	}

	c.SetState(StateInGame)
	s.notifyGameUpdate(g)
	if s.cfg.Logging.LogGames {
		log.Infof("%s joined game %s as %s", p.Name, g.ID, color)
	}

	return protocol.NewResponse(msg.ID, protocol.TypeJoinGameResponse, protocol.JoinGameResponse{
		GameID:      g.ID,
		PlayerColor: strings.ToLower(color.String()),
		Game:        g.Snapshot(),
	})
}

func (s *Server) handleLeaveGame(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.LeaveGameRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	pid := c.PlayerID()
	wasActive := !g.IsFinished()
	if err := g.RemovePlayer(pid); err != nil {
		return protocol.NewError(msg.ID, err)
	}
	s.players.RemoveFromGame(pid, g.ID)

	if wasActive && g.IsFinished() {
		s.finishGame(g)
	} else {
		s.notifyGameUpdate(g)
	}

	return protocol.NewSuccess(msg.ID, "left game")
}

func (s *Server) handleSpectateGame(c *Client, msg *protocol.Message) *protocol.Message {
	if err := s.sessions.CanPerformAction(c.SessionID(), session.ActionSpectate); err != nil {
		return protocol.NewError(msg.ID, err)
	}
	if !s.cfg.Game.AllowSpectators {
		return protocol.NewError(msg.ID, errs.ActionNotAllowed("spectating is disabled"))
	}

	req, err := protocol.Payload[protocol.SpectateGameRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	return protocol.NewResponse(msg.ID, protocol.TypeGetGameInfoResponse, g.Snapshot())
}

func (s *Server) handleMakeMove(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.MakeMoveRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	// Applying the move and queueing its update happen under the
	// publish lock so updates reach each client in move order.
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	pid := c.PlayerID()
	if err := g.MakeMove(pid, req.Move, s.clock.Now()); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	s.stats.MovePlayed()

	info := g.Snapshot()
	update := protocol.NewNotification(protocol.TypeMoveUpdate, protocol.MoveUpdateNotification{
		GameID:     g.ID,
		Move:       req.Move,
		PlayerID:   pid,
		FEN:        info.FEN,
		InCheck:    info.InCheck,
		MoveNumber: info.MoveCount,
	})
	white, black := g.Players()
	s.registry.SendToPlayers([]string{white, black}, update)

	if g.IsFinished() {
		s.finishGame(g)
	}

	return protocol.NewSuccess(msg.ID, "move accepted")
}

func (s *Server) handleOfferDraw(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.OfferDrawRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if err := g.OfferDraw(c.PlayerID()); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	s.notifyGameUpdate(g)
	return protocol.NewSuccess(msg.ID, "draw offered")
}

func (s *Server) handleRespondToDraw(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.RespondToDrawRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if err := g.RespondToDraw(c.PlayerID(), req.Accept); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	if g.IsFinished() {
		s.finishGame(g)
	} else {
		s.notifyGameUpdate(g)
	}
	return protocol.NewSuccess(msg.ID, "draw response recorded")
}

func (s *Server) handleResign(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.ResignRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if err := g.Resign(c.PlayerID()); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	s.finishGame(g)
	return protocol.NewSuccess(msg.ID, "resigned")
}

func (s *Server) handleGetPlayerInfo(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.GetPlayerInfoRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	var p *player.Player
	switch {
	case req.PlayerID != "":
		p, err = s.players.Get(req.PlayerID)
	case req.PlayerName != "":
		p, err = s.players.GetByName(req.PlayerName)
	default:
		p, err = s.players.Get(c.PlayerID())
	}
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	resp := protocol.GetPlayerInfoResponse{Player: p.Display(), Stats: p.Stats}
	if p.ID == c.PlayerID() {
		// Preferences are private to their owner.
		prefs := p.Preferences
		resp.Preferences = &prefs
	}
	return protocol.NewResponse(msg.ID, protocol.TypeGetPlayerInfoResponse, resp)
}

func (s *Server) handleUpdatePreferences(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.UpdatePreferencesRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	if err := s.players.SetPreferences(c.PlayerID(), req.Preferences); err != nil {
		return protocol.NewError(msg.ID, err)
	}
	if p, err := s.players.Get(c.PlayerID()); err == nil {
		s.persistProfile(p)
	}

	return protocol.NewSuccess(msg.ID, "preferences updated")
}

func (s *Server) handleGetOnlinePlayers(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.GetOnlinePlayersRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	players := s.players.Search(req.Query, req.Limit)
	return protocol.NewResponse(msg.ID, protocol.TypeGetOnlinePlayersResponse, protocol.GetOnlinePlayersResponse{
		Players: players,
		Total:   len(players),
	})
}

func (s *Server) handleGetGameList(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.GetGameListRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	games, total := s.games.List(game.ListFilter{
		Status: game.Status(req.Status),
		Player: req.Player,
		Offset: req.Offset,
		Limit:  req.Limit,
	})
	return protocol.NewResponse(msg.ID, protocol.TypeGetGameListResponse, protocol.GetGameListResponse{
		Games:  games,
		Total:  total,
		Offset: req.Offset,
	})
}

func (s *Server) handleGetGameInfo(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.GetGameInfoRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	return protocol.NewResponse(msg.ID, protocol.TypeGetGameInfoResponse, g.Snapshot())
}

func (s *Server) handleGetLegalMoves(c *Client, msg *protocol.Message) *protocol.Message {
	req, err := protocol.Payload[protocol.GetLegalMovesRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	// Legal moves are only disclosed to the player whose turn it is.
	color, err := g.PlayerColor(c.PlayerID())
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	info := g.Snapshot()
	if info.SideToMove != color.String() {
		return protocol.NewError(msg.ID, errs.NotYourTurn())
	}

	return protocol.NewResponse(msg.ID, protocol.TypeGetLegalMovesResponse, protocol.GetLegalMovesResponse{
		GameID:  g.ID,
		Moves:   g.LegalMoves(),
		InCheck: info.InCheck,
	})
}

func (s *Server) handleSendMessage(c *Client, msg *protocol.Message) *protocol.Message {
	if err := s.sessions.CanPerformAction(c.SessionID(), session.ActionChat); err != nil {
		return protocol.NewError(msg.ID, err)
	}

	req, err := protocol.Payload[protocol.ChatMessageRequest](msg)
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}
	if strings.TrimSpace(req.Message) == "" {
		return protocol.NewError(msg.ID, errs.MissingRequiredField("message"))
	}

	p, err := s.players.Get(c.PlayerID())
	if err != nil {
		return protocol.NewError(msg.ID, err)
	}

	note := protocol.NewNotification(protocol.TypeChatMessage, protocol.ChatMessageNotification{
		GameID:     req.GameID,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Message:    req.Message,
		SentAt:     s.clock.Now(),
	})

	if req.GameID != "" {
		g, err := s.games.Get(req.GameID)
		if err != nil {
			return protocol.NewError(msg.ID, err)
		}
		if _, err := g.PlayerColor(p.ID); err != nil {
			return protocol.NewError(msg.ID, err)
		}
		white, black := g.Players()
		s.registry.SendToPlayers([]string{white, black}, note)
	} else {
		s.registry.BroadcastToAuthenticated(note)
	}

	return protocol.NewSuccess(msg.ID, "message sent")
}

// finishGame settles a completed game: rating updates for rated games,
// stats for both players, profile persistence and the final update push.
func (s *Server) finishGame(g *game.Game) {
	info := g.Snapshot()
	if info.Result == nil {
		return
	}

	white, black := g.Players()
	var duration uint64
	if now := s.clock.Now(); now > info.CreatedAt {
		duration = now - info.CreatedAt
	}

	if info.RatedGame && white != "" && black != "" {
		if err := s.players.UpdateRatingsAfterGame(white, black, info.Result.Winner); err != nil {
			log.Warningf("rating update for game %s: %v", g.ID, err)
		}
	}

	for _, pid := range []string{white, black} {
		if pid == "" {
			continue
		}
		result := 0
		switch pid {
		case info.Result.Winner:
			result = 1
		case info.Result.Loser:
			result = -1
		}
		s.players.UpdateStats(pid, func(st *player.Stats) {
			st.RecordGame(result, uint32(info.MoveCount), duration)
		})
		s.players.RemoveFromGame(pid, g.ID)

		if p, err := s.players.Get(pid); err == nil {
			s.persistProfile(p)
		}
	}

	if s.cfg.Logging.LogGames {
		log.Infof("game %s finished: %s (%s)", g.ID, info.Result.Outcome, info.Result.Reason)
	}
	s.notifyGameUpdate(g)
}

// persistProfile saves a non-guest player's profile when storage is on.
func (s *Server) persistProfile(p *player.Player) {
	if s.store == nil || p.Guest {
		return
	}
	if err := s.store.SaveProfile(&storage.Profile{
		Name:        p.Name,
		Stats:       p.Stats,
		Preferences: p.Preferences,
	}); err != nil {
		log.Warningf("persist profile %s: %v", p.Name, err)
	}
}

func (s *Server) idSuffix() string {
	return util.GenerateShortID()
}

func parseColorPref(pref string) board.Color {
	switch strings.ToLower(pref) {
	case "white":
		return board.White
	case "black":
		return board.Black
	}
	return board.NoColor
}
