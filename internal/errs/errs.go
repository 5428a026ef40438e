// Package errs defines the server-wide error taxonomy. Every error that can
// reach a client carries a stable four-digit wire code grouped by family:
// 1xxx game, 2xxx player, 3xxx transport, 4xxx protocol, 5xxx system,
// 6xxx validation, 7xxx rate limit, 8xxx authorization.
package errs

import (
	"fmt"

	"github.com/hailam/chessnet/internal/util"
)

// Kind identifies one error variant of the taxonomy.
type Kind int

const (
	// Game
	KindGameNotFound Kind = iota
	KindInvalidMove
	KindGameFinished
	KindNotYourTurn
	KindGameFull

	// Player
	KindPlayerNotFound
	KindPlayerAlreadyInGame
	KindPlayerNotInGame
	KindInvalidPlayerName
	KindAuthenticationFailed

	// Transport
	KindConnectionLost
	KindInvalidMessage
	KindMessageTooLarge
	KindConnectionTimeout
	KindServerOverloaded

	// Protocol
	KindProtocolVersionMismatch
	KindUnsupportedMessageType
	KindMissingRequiredField

	// System
	KindConfiguration
	KindIO
	KindSerialization
	KindInternal

	// Validation
	KindInvalidPosition
	KindInvalidFen
	KindInvalidPgn

	// Rate limit
	KindRateLimitExceeded
	KindTooManyGames

	// Authorization
	KindInsufficientPermissions
	KindActionNotAllowed
)

var kindCodes = map[Kind]string{
	KindGameNotFound:            "1001",
	KindInvalidMove:             "1002",
	KindGameFinished:            "1003",
	KindNotYourTurn:             "1004",
	KindGameFull:                "1005",
	KindPlayerNotFound:          "2001",
	KindPlayerAlreadyInGame:     "2002",
	KindPlayerNotInGame:         "2003",
	KindInvalidPlayerName:       "2004",
	KindAuthenticationFailed:    "2005",
	KindConnectionLost:          "3001",
	KindInvalidMessage:          "3002",
	KindMessageTooLarge:         "3003",
	KindConnectionTimeout:       "3004",
	KindServerOverloaded:        "3005",
	KindProtocolVersionMismatch: "4001",
	KindUnsupportedMessageType:  "4002",
	KindMissingRequiredField:    "4003",
	KindConfiguration:           "5001",
	KindIO:                      "5002",
	KindSerialization:           "5003",
	KindInternal:                "5004",
	KindInvalidPosition:         "6001",
	KindInvalidFen:              "6002",
	KindInvalidPgn:              "6003",
	KindRateLimitExceeded:       "7001",
	KindTooManyGames:            "7002",
	KindInsufficientPermissions: "8001",
	KindActionNotAllowed:        "8002",
}

// Error is the single error type exchanged between server components.
type Error struct {
	Kind    Kind
	Message string
	Details string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// Code returns the stable four-digit wire code for the error.
func (e *Error) Code() string {
	if code, ok := kindCodes[e.Kind]; ok {
		return code
	}
	return "5004"
}

// Retryable reports whether the client may reasonably retry the request.
// The flag is advisory only.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindConnectionTimeout, KindServerOverloaded, KindConnectionLost, KindIO:
		return true
	}
	return false
}

// WireError is the JSON form of an Error sent to clients.
type WireError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Timestamp uint64 `json:"timestamp"`
}

// Wire converts the error to its wire representation.
func (e *Error) Wire() WireError {
	return WireError{
		ErrorCode: e.Code(),
		Message:   e.Message,
		Details:   e.Details,
		Timestamp: util.CurrentTimestamp(),
	}
}

// From coerces any error into an *Error, wrapping unknown
// errors as internal server errors.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal(err.Error())
}
