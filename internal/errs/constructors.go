package errs

import "fmt"

// Game errors.

func GameNotFound(gameID string) *Error {
	return &Error{Kind: KindGameNotFound, Message: "game not found", Details: gameID}
}

func InvalidMove(reason string) *Error {
	return &Error{Kind: KindInvalidMove, Message: "invalid move", Details: reason}
}

func GameFinished() *Error {
	return &Error{Kind: KindGameFinished, Message: "game is already finished"}
}

func NotYourTurn() *Error {
	return &Error{Kind: KindNotYourTurn, Message: "not your turn"}
}

func GameFull() *Error {
	return &Error{Kind: KindGameFull, Message: "game is full"}
}

// Player errors.

func PlayerNotFound(playerID string) *Error {
	return &Error{Kind: KindPlayerNotFound, Message: "player not found", Details: playerID}
}

func PlayerAlreadyInGame(playerID string) *Error {
	return &Error{Kind: KindPlayerAlreadyInGame, Message: "player already in game", Details: playerID}
}

func PlayerNotInGame(playerID string) *Error {
	return &Error{Kind: KindPlayerNotInGame, Message: "player not in this game", Details: playerID}
}

func InvalidPlayerName(name string) *Error {
	return &Error{Kind: KindInvalidPlayerName, Message: "invalid player name", Details: name}
}

func AuthenticationFailed() *Error {
	return &Error{Kind: KindAuthenticationFailed, Message: "player authentication failed"}
}

// Transport errors.

func ConnectionLost() *Error {
	return &Error{Kind: KindConnectionLost, Message: "connection lost"}
}

func InvalidMessage(details string) *Error {
	return &Error{Kind: KindInvalidMessage, Message: "invalid message format", Details: details}
}

func MessageTooLarge(size int) *Error {
	return &Error{Kind: KindMessageTooLarge, Message: "message too large", Details: fmt.Sprintf("%d bytes", size)}
}

func ConnectionTimeout() *Error {
	return &Error{Kind: KindConnectionTimeout, Message: "connection timeout"}
}

func ServerOverloaded() *Error {
	return &Error{Kind: KindServerOverloaded, Message: "server overloaded"}
}

// Protocol errors.

func ProtocolVersionMismatch(expected, actual string) *Error {
	return &Error{
		Kind:    KindProtocolVersionMismatch,
		Message: "protocol version mismatch",
		Details: fmt.Sprintf("expected %s, got %s", expected, actual),
	}
}

func UnsupportedMessageType(messageType string) *Error {
	return &Error{Kind: KindUnsupportedMessageType, Message: "unsupported message type", Details: messageType}
}

func MissingRequiredField(field string) *Error {
	return &Error{Kind: KindMissingRequiredField, Message: "missing required field", Details: field}
}

// System errors.

func Configuration(details string) *Error {
	return &Error{Kind: KindConfiguration, Message: "configuration error", Details: details}
}

func IO(details string) *Error {
	return &Error{Kind: KindIO, Message: "io error", Details: details}
}

func Serialization(details string) *Error {
	return &Error{Kind: KindSerialization, Message: "serialization error", Details: details}
}

func Internal(details string) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Details: details}
}

// Validation errors.

func InvalidPosition(position string) *Error {
	return &Error{Kind: KindInvalidPosition, Message: "invalid position", Details: position}
}

func InvalidFen(fen string) *Error {
	return &Error{Kind: KindInvalidFen, Message: "invalid FEN string", Details: fen}
}

func InvalidPgn(details string) *Error {
	return &Error{Kind: KindInvalidPgn, Message: "invalid PGN format", Details: details}
}

// Rate limit errors.

func RateLimitExceeded(who string) *Error {
	return &Error{Kind: KindRateLimitExceeded, Message: "rate limit exceeded", Details: who}
}

func TooManyGames(playerID string) *Error {
	return &Error{Kind: KindTooManyGames, Message: "too many games for player", Details: playerID}
}

// Authorization errors.

func InsufficientPermissions() *Error {
	return &Error{Kind: KindInsufficientPermissions, Message: "insufficient permissions"}
}

func ActionNotAllowed(details string) *Error {
	return &Error{Kind: KindActionNotAllowed, Message: "action not allowed in current game state", Details: details}
}
