// Package protocol defines the line-delimited JSON wire format between
// clients and the server: the message envelope, the tagged message
// types and their payloads.
package protocol

import "encoding/json"

// Version is the protocol version carried by every message.
const Version = "1.0"

// MaxMessageSize caps one encoded message line, in bytes.
const MaxMessageSize = 1024 * 1024

// Message is the envelope around every wire exchange. ID correlates a
// response with its request and is absent on notifications.
type Message struct {
	ID        string      `json:"id,omitempty"`
	Version   string      `json:"version"`
	Timestamp uint64      `json:"timestamp"`
	Type      MessageType `json:"message_type"`
}

// MessageType is the tagged union on the wire: a type tag plus a
// type-specific data payload.
type MessageType struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message type tags.
const (
	// Connection and authentication.
	TypeConnect              = "Connect"
	TypeConnectResponse      = "ConnectResponse"
	TypeAuthenticate         = "Authenticate"
	TypeAuthenticateResponse = "AuthenticateResponse"
	TypeDisconnect           = "Disconnect"

	// Game management.
	TypeCreateGame         = "CreateGame"
	TypeCreateGameResponse = "CreateGameResponse"
	TypeJoinGame           = "JoinGame"
	TypeJoinGameResponse   = "JoinGameResponse"
	TypeLeaveGame          = "LeaveGame"
	TypeSpectateGame       = "SpectateGame"

	// Game play.
	TypeMakeMove   = "MakeMove"
	TypeGameUpdate = "GameUpdate"
	TypeMoveUpdate = "MoveUpdate"

	// Game control.
	TypeOfferDraw     = "OfferDraw"
	TypeRespondToDraw = "RespondToDraw"
	TypeResign        = "Resign"
	TypeRequestUndo   = "RequestUndo"
	TypeRespondToUndo = "RespondToUndo"

	// Player management.
	TypeGetPlayerInfo            = "GetPlayerInfo"
	TypeGetPlayerInfoResponse    = "GetPlayerInfoResponse"
	TypeUpdatePreferences        = "UpdatePreferences"
	TypeGetOnlinePlayers         = "GetOnlinePlayers"
	TypeGetOnlinePlayersResponse = "GetOnlinePlayersResponse"

	// Game info.
	TypeGetGameList           = "GetGameList"
	TypeGetGameListResponse   = "GetGameListResponse"
	TypeGetGameInfo           = "GetGameInfo"
	TypeGetGameInfoResponse   = "GetGameInfoResponse"
	TypeGetLegalMoves         = "GetLegalMoves"
	TypeGetLegalMovesResponse = "GetLegalMovesResponse"

	// Chat.
	TypeSendMessage = "SendMessage"
	TypeChatMessage = "ChatMessage"

	// System.
	TypePing      = "Ping"
	TypePong      = "Pong"
	TypeHeartbeat = "Heartbeat"
	TypeError     = "Error"
	TypeSuccess   = "Success"
)
