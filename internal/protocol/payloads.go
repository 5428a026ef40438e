package protocol

import (
	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/game"
	"github.com/hailam/chessnet/internal/player"
)

// Connection and authentication payloads.

type ConnectRequest struct {
	PlayerName    string `json:"player_name,omitempty"`
	ClientVersion string `json:"client_version,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
}

type ConnectResponse struct {
	SessionID  string     `json:"session_id"`
	PlayerID   string     `json:"player_id"`
	ServerInfo ServerInfo `json:"server_info"`
}

type ServerInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocol_version"`
	MaxMessageSize  int    `json:"max_message_size"`
	PlayersOnline   int    `json:"players_online"`
	ActiveGames     int    `json:"active_games"`
}

type AuthenticateRequest struct {
	PlayerName   string `json:"player_name"`
	Password     string `json:"password,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
}

type AuthenticateResponse struct {
	PlayerID         string             `json:"player_id"`
	PlayerInfo       player.DisplayInfo `json:"player_info"`
	SessionExpiresAt uint64             `json:"session_expires_at"`
}

type DisconnectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Game management payloads.

type TimeControl struct {
	InitialSecs   uint64 `json:"initial_secs"`
	IncrementSecs uint64 `json:"increment_secs"`
}

type CreateGameRequest struct {
	TimeControl     *TimeControl `json:"time_control,omitempty"`
	ColorPreference string       `json:"color_preference,omitempty"` // "white" or "black"
	Rated           bool         `json:"rated"`
	IsPrivate       bool         `json:"is_private"`
	Password        string       `json:"password,omitempty"`
}

type CreateGameResponse struct {
	GameID      string `json:"game_id"`
	PlayerColor string `json:"player_color"`
}

type JoinGameRequest struct {
	GameID          string `json:"game_id"`
	ColorPreference string `json:"color_preference,omitempty"`
	Password        string `json:"password,omitempty"`
}

type JoinGameResponse struct {
	GameID      string    `json:"game_id"`
	PlayerColor string    `json:"player_color"`
	Game        game.Info `json:"game"`
}

type LeaveGameRequest struct {
	GameID string `json:"game_id"`
}

type SpectateGameRequest struct {
	GameID string `json:"game_id"`
}

// Game play payloads.

type MakeMoveRequest struct {
	GameID string `json:"game_id"`
	Move   string `json:"move"` // coordinate notation, e.g. "e2e4"
}

type GameUpdateNotification struct {
	Game game.Info `json:"game"`
}

type MoveUpdateNotification struct {
	GameID     string `json:"game_id"`
	Move       string `json:"move"`
	PlayerID   string `json:"player_id"`
	FEN        string `json:"fen"`
	InCheck    bool   `json:"in_check"`
	MoveNumber int    `json:"move_number"`
}

// Game control payloads.

type OfferDrawRequest struct {
	GameID string `json:"game_id"`
}

type RespondToDrawRequest struct {
	GameID string `json:"game_id"`
	Accept bool   `json:"accept"`
}

type ResignRequest struct {
	GameID string `json:"game_id"`
}

type RequestUndoRequest struct {
	GameID string `json:"game_id"`
}

type RespondToUndoRequest struct {
	GameID string `json:"game_id"`
	Accept bool   `json:"accept"`
}

// Player management payloads.

type GetPlayerInfoRequest struct {
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
}

type GetPlayerInfoResponse struct {
	Player      player.DisplayInfo  `json:"player"`
	Stats       player.Stats        `json:"stats"`
	Preferences *player.Preferences `json:"preferences,omitempty"`
}

type UpdatePreferencesRequest struct {
	Preferences player.Preferences `json:"preferences"`
}

type GetOnlinePlayersRequest struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type GetOnlinePlayersResponse struct {
	Players []player.DisplayInfo `json:"players"`
	Total   int                  `json:"total"`
}

// Game info payloads.

type GetGameListRequest struct {
	Status string `json:"status,omitempty"` // "waiting", "active", "finished"
	Player string `json:"player,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type GetGameListResponse struct {
	Games  []game.Info `json:"games"`
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
}

type GetGameInfoRequest struct {
	GameID string `json:"game_id"`
}

type GetLegalMovesRequest struct {
	GameID string `json:"game_id"`
}

type GetLegalMovesResponse struct {
	GameID  string   `json:"game_id"`
	Moves   []string `json:"moves"`
	InCheck bool     `json:"in_check"`
}

// Chat payloads.

type ChatMessageRequest struct {
	GameID  string `json:"game_id,omitempty"` // empty for server-wide chat
	Message string `json:"message"`
}

type ChatMessageNotification struct {
	GameID     string `json:"game_id,omitempty"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
	SentAt     uint64 `json:"sent_at"`
}

// System payloads.

type SuccessResponse struct {
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the wire form of a server error.
type ErrorResponse = errs.WireError
