package server

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessnet/internal/config"
	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/game"
	"github.com/hailam/chessnet/internal/player"
	"github.com/hailam/chessnet/internal/protocol"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	return New(cfg, nil)
}

// newTestClient builds a client on an unread pipe. The write loop is
// not started; replies are inspected straight off the outbound queue.
func newTestClient(t *testing.T, s *Server, queueSize int) *Client {
	t.Helper()
	conn, peer := net.Pipe()
	t.Cleanup(func() {
		conn.Close()
		peer.Close()
	})

	c := NewClient(conn, queueSize, 0, s.clock.Now())
	s.registry.Add(c)
	return c
}

// request round-trips one message through the dispatcher.
func request(t *testing.T, s *Server, c *Client, msgType string, payload any) *protocol.Message {
	t.Helper()
	reply := s.dispatch(c, protocol.NewRequest(msgType, payload))
	require.NotNil(t, reply, "%s should get a reply", msgType)
	return reply
}

func requireSuccessType(t *testing.T, reply *protocol.Message, wantType string) {
	t.Helper()
	if reply.Type.Type == protocol.TypeError {
		wire, err := protocol.Payload[errs.WireError](reply)
		require.NoError(t, err)
		t.Fatalf("expected %s, got error %s: %s %s", wantType, wire.ErrorCode, wire.Message, wire.Details)
	}
	require.Equal(t, wantType, reply.Type.Type)
}

func requireErrorCode(t *testing.T, reply *protocol.Message, code string) {
	t.Helper()
	require.Equal(t, protocol.TypeError, reply.Type.Type)
	wire, err := protocol.Payload[errs.WireError](reply)
	require.NoError(t, err)
	assert.Equal(t, code, wire.ErrorCode)
}

func connect(t *testing.T, s *Server, name string) *Client {
	t.Helper()
	c := newTestClient(t, s, 64)
	reply := request(t, s, c, protocol.TypeConnect, protocol.ConnectRequest{PlayerName: name})
	requireSuccessType(t, reply, protocol.TypeConnectResponse)

	resp, err := protocol.Payload[protocol.ConnectResponse](reply)
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.PlayerID)
	assert.Equal(t, resp.PlayerID, c.PlayerID())
	assert.Equal(t, resp.SessionID, c.SessionID())
	return c
}

// next pops the oldest queued outbound message.
func next(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case line := <-c.out:
		msg, err := protocol.Decode(line)
		require.NoError(t, err)
		return msg
	case <-time.After(time.Second):
		t.Fatal("no queued message")
		return nil
	}
}

// drain pops queued outbound messages until one matches the type or
// the queue stays empty for a while.
func drain(t *testing.T, c *Client, msgType string) *protocol.Message {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case line := <-c.out:
			msg, err := protocol.Decode(line)
			require.NoError(t, err)
			if msg.Type.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s notification arrived", msgType)
		}
	}
}

func TestRegistryIndexes(t *testing.T) {
	s := newTestServer(t)

	c := newTestClient(t, s, 4)
	require.NoError(t, s.registry.Associate(c, "p1", "s1"))
	assert.Equal(t, 1, s.registry.Count())

	found, ok := s.registry.ByPlayer("p1")
	require.True(t, ok)
	assert.Same(t, c, found)

	// A second connection for the same player displaces the first.
	c2 := newTestClient(t, s, 4)
	require.NoError(t, s.registry.Associate(c2, "p1", "s2"))
	assert.Equal(t, 1, s.registry.Count())

	found, ok = s.registry.ByPlayer("p1")
	require.True(t, ok)
	assert.Same(t, c2, found)

	select {
	case <-c.Done():
	default:
		t.Error("displaced connection should be closed")
	}

	s.registry.Remove(c2)
	assert.Equal(t, 0, s.registry.Count())
	_, ok = s.registry.ByPlayer("p1")
	assert.False(t, ok)
}

func TestClientQueueFullDropsConnection(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 2)

	msg := protocol.NewNotification(protocol.TypePing, nil)
	require.NoError(t, c.Send(msg))
	require.NoError(t, c.Send(msg))

	err := c.Send(msg)
	require.Error(t, err, "a full queue must not block")
	assert.Equal(t, errs.KindConnectionLost, errs.From(err).Kind)
	assert.Equal(t, StateDisconnecting, c.State())

	select {
	case <-c.Done():
	default:
		t.Error("overflowing client should be torn down")
	}
}

func TestBroadcastCountsDelivered(t *testing.T) {
	s := newTestServer(t)

	a := newTestClient(t, s, 4)
	b := newTestClient(t, s, 4)
	full := newTestClient(t, s, 0) // zero capacity, always overflows

	_ = a
	_ = b
	sent := s.registry.Broadcast(protocol.NewNotification(protocol.TypeHeartbeat, nil))
	assert.Equal(t, 2, sent)

	select {
	case <-full.Done():
	default:
		t.Error("undeliverable client should be dropped")
	}
}

func TestGuestConnectAndPermissions(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, "")

	p, err := s.players.Get(c.PlayerID())
	require.NoError(t, err)
	assert.True(t, p.Guest)
	assert.Contains(t, p.Name, "Guest-")

	// Guests cannot create games or chat.
	reply := request(t, s, c, protocol.TypeCreateGame, protocol.CreateGameRequest{})
	requireErrorCode(t, reply, "8001")

	reply = request(t, s, c, protocol.TypeSendMessage, protocol.ChatMessageRequest{Message: "hi"})
	requireErrorCode(t, reply, "8001")
}

func TestDuplicateNameRejected(t *testing.T) {
	s := newTestServer(t)
	connect(t, s, "alice")

	c2 := newTestClient(t, s, 64)
	reply := request(t, s, c2, protocol.TypeConnect, protocol.ConnectRequest{PlayerName: "alice"})
	requireErrorCode(t, reply, "2004")
}

func TestPingPong(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, "alice")

	req := protocol.NewRequest(protocol.TypePing, nil)
	reply := s.dispatch(c, req)
	require.NotNil(t, reply)
	assert.Equal(t, protocol.TypePong, reply.Type.Type)
	assert.Equal(t, req.ID, reply.ID)
}

func TestUnsupportedMessageTypes(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, "alice")

	reply := request(t, s, c, protocol.TypeRequestUndo, protocol.RequestUndoRequest{GameID: "g1"})
	requireErrorCode(t, reply, "4002")

	reply = request(t, s, c, "NoSuchType", nil)
	requireErrorCode(t, reply, "4002")
}

// setupGame connects two named players and seats them in one game.
func setupGame(t *testing.T, s *Server) (white, black *Client, gameID string) {
	t.Helper()
	white = connect(t, s, "alice")
	black = connect(t, s, "bob")

	reply := request(t, s, white, protocol.TypeCreateGame, protocol.CreateGameRequest{
		ColorPreference: "white",
		Rated:           true,
	})
	requireSuccessType(t, reply, protocol.TypeCreateGameResponse)
	created, err := protocol.Payload[protocol.CreateGameResponse](reply)
	require.NoError(t, err)
	assert.Equal(t, "white", created.PlayerColor)

	reply = request(t, s, black, protocol.TypeJoinGame, protocol.JoinGameRequest{GameID: created.GameID})
	requireSuccessType(t, reply, protocol.TypeJoinGameResponse)
	joined, err := protocol.Payload[protocol.JoinGameResponse](reply)
	require.NoError(t, err)
	assert.Equal(t, "black", joined.PlayerColor)
	assert.Equal(t, game.StatusActive, joined.Game.Status)

	return white, black, created.GameID
}

func TestFullGameOverWire(t *testing.T) {
	s := newTestServer(t)
	white, black, gameID := setupGame(t, s)

	moves := []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"}
	clients := [2]*Client{white, black}
	for i, mv := range moves {
		reply := request(t, s, clients[i%2], protocol.TypeMakeMove, protocol.MakeMoveRequest{
			GameID: gameID,
			Move:   mv,
		})
		requireSuccessType(t, reply, protocol.TypeSuccess)
	}

	// Both players hear about the last move.
	update, err := protocol.Payload[protocol.MoveUpdateNotification](drain(t, black, protocol.TypeMoveUpdate))
	require.NoError(t, err)
	assert.Equal(t, gameID, update.GameID)

	reply := request(t, s, white, protocol.TypeGetGameInfo, protocol.GetGameInfoRequest{GameID: gameID})
	requireSuccessType(t, reply, protocol.TypeGetGameInfoResponse)
	info, err := protocol.Payload[game.Info](reply)
	require.NoError(t, err)
	assert.Equal(t, game.StatusFinished, info.Status)
	require.NotNil(t, info.Result)
	assert.Equal(t, game.OutcomeCheckmate, info.Result.Outcome)
	assert.Equal(t, white.PlayerID(), info.Result.Winner)

	// The rated result moved both ratings off the default.
	winner, err := s.players.Get(white.PlayerID())
	require.NoError(t, err)
	loser, err := s.players.Get(black.PlayerID())
	require.NoError(t, err)
	assert.Equal(t, uint32(1216), winner.Stats.Rating)
	assert.Equal(t, uint32(1184), loser.Stats.Rating)
	assert.Equal(t, uint32(1), winner.Stats.Wins)
	assert.Equal(t, uint32(1), loser.Stats.Losses)
}

func TestMakeMoveOutOfTurnOverWire(t *testing.T) {
	s := newTestServer(t)
	_, black, gameID := setupGame(t, s)

	reply := request(t, s, black, protocol.TypeMakeMove, protocol.MakeMoveRequest{
		GameID: gameID,
		Move:   "e7e5",
	})
	requireErrorCode(t, reply, "1004")
}

func TestGetLegalMovesOnlyForSideToMove(t *testing.T) {
	s := newTestServer(t)
	white, black, gameID := setupGame(t, s)

	reply := request(t, s, white, protocol.TypeGetLegalMoves, protocol.GetLegalMovesRequest{GameID: gameID})
	requireSuccessType(t, reply, protocol.TypeGetLegalMovesResponse)
	legal, err := protocol.Payload[protocol.GetLegalMovesResponse](reply)
	require.NoError(t, err)
	assert.Len(t, legal.Moves, 20)
	assert.False(t, legal.InCheck)

	reply = request(t, s, black, protocol.TypeGetLegalMoves, protocol.GetLegalMovesRequest{GameID: gameID})
	requireErrorCode(t, reply, "1004")
}

func TestResignOverWire(t *testing.T) {
	s := newTestServer(t)
	white, black, gameID := setupGame(t, s)

	reply := request(t, s, black, protocol.TypeResign, protocol.ResignRequest{GameID: gameID})
	requireSuccessType(t, reply, protocol.TypeSuccess)

	// Skip interim updates (the join push) and wait for the final one.
	deadline := time.After(time.Second)
	for {
		update, err := protocol.Payload[protocol.GameUpdateNotification](drain(t, white, protocol.TypeGameUpdate))
		require.NoError(t, err)
		if update.Game.Result == nil {
			select {
			case <-deadline:
				t.Fatal("no final game update arrived")
			default:
				continue
			}
		}
		assert.Equal(t, game.OutcomeResignation, update.Game.Result.Outcome)
		assert.Equal(t, white.PlayerID(), update.Game.Result.Winner)
		return
	}
}

func TestDrawOverWire(t *testing.T) {
	s := newTestServer(t)
	white, black, gameID := setupGame(t, s)

	reply := request(t, s, white, protocol.TypeOfferDraw, protocol.OfferDrawRequest{GameID: gameID})
	requireSuccessType(t, reply, protocol.TypeSuccess)

	reply = request(t, s, black, protocol.TypeRespondToDraw, protocol.RespondToDrawRequest{
		GameID: gameID,
		Accept: true,
	})
	requireSuccessType(t, reply, protocol.TypeSuccess)

	g, err := s.games.Get(gameID)
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeDrawAgreement, g.Snapshot().Result.Outcome)
}

func TestGameChatReachesBothSeats(t *testing.T) {
	s := newTestServer(t)
	white, black, gameID := setupGame(t, s)

	reply := request(t, s, white, protocol.TypeSendMessage, protocol.ChatMessageRequest{
		GameID:  gameID,
		Message: "good luck",
	})
	requireSuccessType(t, reply, protocol.TypeSuccess)

	chat, err := protocol.Payload[protocol.ChatMessageNotification](drain(t, black, protocol.TypeChatMessage))
	require.NoError(t, err)
	assert.Equal(t, "good luck", chat.Message)
	assert.Equal(t, "alice", chat.PlayerName)
}

func TestGameListOverWire(t *testing.T) {
	s := newTestServer(t)
	_, _, gameID := setupGame(t, s)

	carol := connect(t, s, "carol")
	reply := request(t, s, carol, protocol.TypeGetGameList, protocol.GetGameListRequest{Status: "active"})
	requireSuccessType(t, reply, protocol.TypeGetGameListResponse)

	list, err := protocol.Payload[protocol.GetGameListResponse](reply)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, gameID, list.Games[0].ID)
}

func TestGetPlayerInfoPrivacy(t *testing.T) {
	s := newTestServer(t)
	alice := connect(t, s, "alice")
	bob := connect(t, s, "bob")

	reply := request(t, s, alice, protocol.TypeGetPlayerInfo, protocol.GetPlayerInfoRequest{})
	requireSuccessType(t, reply, protocol.TypeGetPlayerInfoResponse)
	own, err := protocol.Payload[protocol.GetPlayerInfoResponse](reply)
	require.NoError(t, err)
	assert.NotNil(t, own.Preferences, "own preferences are visible")

	reply = request(t, s, bob, protocol.TypeGetPlayerInfo, protocol.GetPlayerInfoRequest{PlayerName: "alice"})
	requireSuccessType(t, reply, protocol.TypeGetPlayerInfoResponse)
	other, err := protocol.Payload[protocol.GetPlayerInfoResponse](reply)
	require.NoError(t, err)
	assert.Nil(t, other.Preferences, "preferences stay private")
	assert.Equal(t, "alice", other.Player.Name)
}

func TestMoveUpdatesArriveInPlayedOrder(t *testing.T) {
	s := newTestServer(t)
	white, black, gameID := setupGame(t, s)

	// The join push is queued first on both seats.
	require.Equal(t, protocol.TypeGameUpdate, next(t, black).Type.Type)
	require.Equal(t, protocol.TypeGameUpdate, next(t, white).Type.Type)

	moves := []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"}
	clients := [2]*Client{white, black}
	for i, mv := range moves {
		reply := request(t, s, clients[i%2], protocol.TypeMakeMove, protocol.MakeMoveRequest{
			GameID: gameID,
			Move:   mv,
		})
		requireSuccessType(t, reply, protocol.TypeSuccess)
	}

	// Every move lands on the queue in the order it was played, and the
	// final game update follows the mating move.
	for _, mv := range moves {
		msg := next(t, black)
		require.Equal(t, protocol.TypeMoveUpdate, msg.Type.Type)
		update, err := protocol.Payload[protocol.MoveUpdateNotification](msg)
		require.NoError(t, err)
		assert.Equal(t, mv, update.Move)
	}
	final := next(t, black)
	require.Equal(t, protocol.TypeGameUpdate, final.Type.Type)
	over, err := protocol.Payload[protocol.GameUpdateNotification](final)
	require.NoError(t, err)
	require.NotNil(t, over.Game.Result)
	assert.Equal(t, game.OutcomeCheckmate, over.Game.Result.Outcome)
}

func TestReconnectAdoptsPlayerAndSession(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, "alice")
	pid, sid := c.PlayerID(), c.SessionID()

	require.NoError(t, s.players.UpdateStats(pid, func(st *player.Stats) { st.Rating = 1500 }))

	s.dropClient(c, "connection lost")

	p, err := s.players.Get(pid)
	require.NoError(t, err, "player survives a dropped connection")
	assert.Equal(t, player.StatusOffline, p.Status)
	assert.Equal(t, 1, s.sessions.Count(), "session waits for idle expiry")

	c2 := connect(t, s, "alice")
	assert.Equal(t, pid, c2.PlayerID())
	assert.Equal(t, sid, c2.SessionID())

	p, err = s.players.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, player.StatusOnline, p.Status)
	assert.Equal(t, uint32(1500), p.Stats.Rating)
}

func TestExplicitDisconnectRemovesState(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, "alice")
	pid, sid := c.PlayerID(), c.SessionID()

	s.removeClient(c, "client requested disconnect")

	_, err := s.players.Get(pid)
	assert.Error(t, err)
	_, err = s.sessions.Get(sid)
	assert.Error(t, err)
	assert.Equal(t, 0, s.registry.Count())
}

func TestRepeatConnectRejected(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, "alice")

	reply := request(t, s, c, protocol.TypeConnect, protocol.ConnectRequest{PlayerName: "mallory"})
	requireErrorCode(t, reply, "8002")
	assert.Equal(t, 1, s.players.Count())
	assert.Equal(t, 1, s.sessions.Count())
}

func TestOversizedLineRepliesBeforeTeardown(t *testing.T) {
	s := newTestServer(t)
	conn, peer := net.Pipe()
	t.Cleanup(func() {
		conn.Close()
		peer.Close()
	})

	c := NewClient(conn, 4, 0, s.clock.Now())

	done := make(chan struct{})
	go func() {
		c.ReadLoop(func([]byte) { t.Error("an oversized line must not dispatch") })
		close(done)
	}()
	go peer.Write(bytes.Repeat([]byte{'x'}, protocol.MaxMessageSize+2))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop")
	}

	reply := next(t, c)
	require.Equal(t, protocol.TypeError, reply.Type.Type)
	wire, err := protocol.Payload[errs.WireError](reply)
	require.NoError(t, err)
	assert.Equal(t, "3003", wire.ErrorCode)
}

func TestServerInfoReflectsState(t *testing.T) {
	s := newTestServer(t)
	setupGame(t, s)

	info := s.serverInfo()
	assert.Equal(t, 2, info.PlayersOnline)
	assert.Equal(t, 1, info.ActiveGames)
	assert.Equal(t, protocol.Version, info.ProtocolVersion)
}
