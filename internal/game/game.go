// Package game manages chess games between players: move validation
// and application through the rules engine, result detection, draw
// negotiation and game lifecycle.
package game

import (
	"fmt"
	"sync"

	"github.com/hailam/chessnet/internal/board"
	"github.com/hailam/chessnet/internal/errs"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusWaiting  Status = "waiting"  // waiting for a second player
	StatusActive   Status = "active"   // both seats taken, moves accepted
	StatusFinished Status = "finished" // result decided
)

// Outcome classifies how a finished game ended.
type Outcome string

const (
	OutcomeCheckmate            Outcome = "checkmate"
	OutcomeStalemate            Outcome = "stalemate"
	OutcomeResignation          Outcome = "resignation"
	OutcomeTimeout              Outcome = "timeout"
	OutcomeDrawAgreement        Outcome = "draw_agreement"
	OutcomeFiftyMoveRule        Outcome = "fifty_move_rule"
	OutcomeThreefoldRepetition  Outcome = "threefold_repetition"
	OutcomeInsufficientMaterial Outcome = "insufficient_material"
	OutcomeAbandoned            Outcome = "abandoned"
)

// IsDraw reports whether the outcome has no winner.
func (o Outcome) IsDraw() bool {
	switch o {
	case OutcomeStalemate, OutcomeDrawAgreement, OutcomeFiftyMoveRule,
		OutcomeThreefoldRepetition, OutcomeInsufficientMaterial:
		return true
	}
	return false
}

// Result records how a game ended. Winner and Loser are empty for draws.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Winner  string  `json:"winner,omitempty"` // player ID
	Loser   string  `json:"loser,omitempty"`  // player ID
	Reason  string  `json:"reason,omitempty"`
}

// Game is a single chess game. All methods are safe for concurrent use.
type Game struct {
	mu sync.Mutex

	ID          string
	Position    *board.Position
	WhitePlayer string // player ID, empty until seated
	BlackPlayer string
	Status      Status
	Result      *Result

	MoveHistory []board.Move
	// PositionHistory holds the repetition key of every position the
	// game has passed through, starting with the initial one.
	PositionHistory []string

	// DrawOffer is the color with a pending draw offer, or NoColor.
	DrawOffer board.Color

	CreatedAt   uint64
	LastMoveAt  uint64
	RatedGame   bool
	TimeControl string
}

// New creates a game from the starting position.
func New(id string, rated bool, timeControl string, now uint64) *Game {
	pos := board.NewPosition()
	return &Game{
		ID:              id,
		Position:        pos,
		Status:          StatusWaiting,
		PositionHistory: []string{pos.Key()},
		DrawOffer:       board.NoColor,
		CreatedAt:       now,
		LastMoveAt:      now,
		RatedGame:       rated,
		TimeControl:     timeControl,
	}
}

// NewFromFEN creates a game from an arbitrary position, used for
// analysis and tests.
func NewFromFEN(id, fen string, now uint64) (*Game, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, errs.InvalidMove(fmt.Sprintf("bad starting position: %v", err))
	}
	return &Game{
		ID:              id,
		Position:        pos,
		Status:          StatusWaiting,
		PositionHistory: []string{pos.Key()},
		DrawOffer:       board.NoColor,
		CreatedAt:       now,
		LastMoveAt:      now,
	}, nil
}

// AddPlayer seats a player, honoring a color preference when the seat
// is free. The game becomes active once both seats are taken.
func (g *Game) AddPlayer(playerID string, pref board.Color) (board.Color, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Status == StatusFinished {
		return board.NoColor, errs.GameFinished()
	}
	if g.WhitePlayer == playerID || g.BlackPlayer == playerID {
		return board.NoColor, errs.PlayerAlreadyInGame(playerID)
	}
	if g.WhitePlayer != "" && g.BlackPlayer != "" {
		return board.NoColor, errs.GameFull()
	}

	var color board.Color
	switch {
	case pref == board.White && g.WhitePlayer == "":
		color = board.White
	case pref == board.Black && g.BlackPlayer == "":
		color = board.Black
	case g.WhitePlayer == "":
		color = board.White
	default:
		color = board.Black
	}

	if color == board.White {
		g.WhitePlayer = playerID
	} else {
		g.BlackPlayer = playerID
	}

	if g.WhitePlayer != "" && g.BlackPlayer != "" {
		g.Status = StatusActive
	}
	return color, nil
}

// RemovePlayer unseats a player. An active game counts this as
// abandonment and the remaining player wins.
func (g *Game) RemovePlayer(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	color, err := g.playerColorLocked(playerID)
	if err != nil {
		return err
	}

	if g.Status == StatusActive {
		g.finishLocked(&Result{
			Outcome: OutcomeAbandoned,
			Winner:  g.playerAtLocked(color.Other()),
			Loser:   playerID,
			Reason:  "opponent left the game",
		})
		return nil
	}

	if color == board.White {
		g.WhitePlayer = ""
	} else {
		g.BlackPlayer = ""
	}
	return nil
}

// PlayerColor returns the color a player occupies.
func (g *Game) PlayerColor(playerID string) (board.Color, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerColorLocked(playerID)
}

func (g *Game) playerColorLocked(playerID string) (board.Color, error) {
	switch playerID {
	case "":
		return board.NoColor, errs.PlayerNotFound(playerID)
	case g.WhitePlayer:
		return board.White, nil
	case g.BlackPlayer:
		return board.Black, nil
	}
	return board.NoColor, errs.PlayerNotInGame(playerID)
}

func (g *Game) playerAtLocked(c board.Color) string {
	if c == board.White {
		return g.WhitePlayer
	}
	return g.BlackPlayer
}

// MakeMove validates and applies a move in coordinate notation. A
// pending draw offer from either side is cleared. Game-ending
// conditions are checked in order: checkmate, stalemate, the fifty-move
// rule, threefold repetition, insufficient material.
func (g *Game) MakeMove(playerID, moveStr string, now uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Status == StatusFinished {
		return errs.GameFinished()
	}
	if g.Status != StatusActive {
		return errs.ActionNotAllowed("game is not active")
	}

	color, err := g.playerColorLocked(playerID)
	if err != nil {
		return err
	}
	if color != g.Position.SideToMove {
		return errs.NotYourTurn()
	}

	m, err := board.ParseMove(moveStr, g.Position)
	if err != nil {
		return errs.InvalidMove(err.Error())
	}
	if err := g.Position.IsValidMove(m); err != nil {
		return errs.InvalidMove(err.Error())
	}

	g.Position.ApplyMove(m)
	g.MoveHistory = append(g.MoveHistory, m)
	g.PositionHistory = append(g.PositionHistory, g.Position.Key())
	g.DrawOffer = board.NoColor
	g.LastMoveAt = now

	g.checkTerminationLocked(color)
	return nil
}

func (g *Game) checkTerminationLocked(mover board.Color) {
	switch {
	case g.Position.IsCheckmate():
		g.finishLocked(&Result{
			Outcome: OutcomeCheckmate,
			Winner:  g.playerAtLocked(mover),
			Loser:   g.playerAtLocked(mover.Other()),
			Reason:  "checkmate",
		})
	case g.Position.IsStalemate():
		g.finishLocked(&Result{Outcome: OutcomeStalemate, Reason: "stalemate"})
	case g.Position.HalfMoveClock >= 100:
		g.finishLocked(&Result{Outcome: OutcomeFiftyMoveRule, Reason: "fifty moves without progress"})
	case g.repetitionsLocked() >= 3:
		g.finishLocked(&Result{Outcome: OutcomeThreefoldRepetition, Reason: "position repeated three times"})
	case g.Position.IsInsufficientMaterial():
		g.finishLocked(&Result{Outcome: OutcomeInsufficientMaterial, Reason: "insufficient mating material"})
	}
}

func (g *Game) repetitionsLocked() int {
	current := g.PositionHistory[len(g.PositionHistory)-1]
	count := 0
	for _, key := range g.PositionHistory {
		if key == current {
			count++
		}
	}
	return count
}

func (g *Game) finishLocked(r *Result) {
	g.Status = StatusFinished
	g.Result = r
}

// Resign ends the game in the opponent's favor.
func (g *Game) Resign(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Status == StatusFinished {
		return errs.GameFinished()
	}
	color, err := g.playerColorLocked(playerID)
	if err != nil {
		return err
	}
	if g.Status != StatusActive {
		return errs.ActionNotAllowed("game is not active")
	}

	g.finishLocked(&Result{
		Outcome: OutcomeResignation,
		Winner:  g.playerAtLocked(color.Other()),
		Loser:   playerID,
		Reason:  fmt.Sprintf("%s resigned", color),
	})
	return nil
}

// OfferDraw records a draw offer. The offer stands until the opponent
// responds or either side makes a move.
func (g *Game) OfferDraw(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Status == StatusFinished {
		return errs.GameFinished()
	}
	color, err := g.playerColorLocked(playerID)
	if err != nil {
		return err
	}
	if g.Status != StatusActive {
		return errs.ActionNotAllowed("game is not active")
	}
	if g.DrawOffer == color {
		return errs.ActionNotAllowed("draw already offered")
	}

	g.DrawOffer = color
	return nil
}

// RespondToDraw accepts or declines a pending draw offer from the
// opponent. Accepting ends the game as a draw by agreement.
func (g *Game) RespondToDraw(playerID string, accept bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Status == StatusFinished {
		return errs.GameFinished()
	}
	color, err := g.playerColorLocked(playerID)
	if err != nil {
		return err
	}
	if g.DrawOffer == board.NoColor || g.DrawOffer == color {
		return errs.ActionNotAllowed("no draw offer to respond to")
	}

	g.DrawOffer = board.NoColor
	if accept {
		g.finishLocked(&Result{Outcome: OutcomeDrawAgreement, Reason: "draw by agreement"})
	}
	return nil
}

// TimeoutPlayer ends the game against a player whose clock ran out.
func (g *Game) TimeoutPlayer(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Status == StatusFinished {
		return errs.GameFinished()
	}
	color, err := g.playerColorLocked(playerID)
	if err != nil {
		return err
	}

	g.finishLocked(&Result{
		Outcome: OutcomeTimeout,
		Winner:  g.playerAtLocked(color.Other()),
		Loser:   playerID,
		Reason:  fmt.Sprintf("%s ran out of time", color),
	})
	return nil
}

// LegalMoves returns the legal moves in coordinate notation.
func (g *Game) LegalMoves() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	moves := g.Position.GenerateLegalMoves()
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

// InCheck reports whether the side to move is in check.
func (g *Game) InCheck() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Position.InCheck(g.Position.SideToMove)
}

// Info is an immutable snapshot of a game for listings and updates.
type Info struct {
	ID          string  `json:"game_id"`
	FEN         string  `json:"fen"`
	WhitePlayer string  `json:"white_player,omitempty"`
	BlackPlayer string  `json:"black_player,omitempty"`
	Status      Status  `json:"status"`
	Result      *Result `json:"result,omitempty"`
	SideToMove  string  `json:"side_to_move"`
	MoveCount   int     `json:"move_count"`
	LastMove    string  `json:"last_move,omitempty"`
	InCheck     bool    `json:"in_check"`
	DrawOffer   string  `json:"draw_offer,omitempty"`
	RatedGame   bool    `json:"rated"`
	TimeControl string  `json:"time_control,omitempty"`
	CreatedAt   uint64  `json:"created_at"`
}

// Snapshot returns a consistent view of the game state.
func (g *Game) Snapshot() Info {
	g.mu.Lock()
	defer g.mu.Unlock()

	info := Info{
		ID:          g.ID,
		FEN:         g.Position.ToFEN(),
		WhitePlayer: g.WhitePlayer,
		BlackPlayer: g.BlackPlayer,
		Status:      g.Status,
		Result:      g.Result,
		SideToMove:  g.Position.SideToMove.String(),
		MoveCount:   len(g.MoveHistory),
		InCheck:     g.Position.InCheck(g.Position.SideToMove),
		RatedGame:   g.RatedGame,
		TimeControl: g.TimeControl,
		CreatedAt:   g.CreatedAt,
	}
	if len(g.MoveHistory) > 0 {
		info.LastMove = g.MoveHistory[len(g.MoveHistory)-1].String()
	}
	if g.DrawOffer != board.NoColor {
		info.DrawOffer = g.DrawOffer.String()
	}
	return info
}

// Players returns the two seated player IDs; either may be empty.
func (g *Game) Players() (white, black string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.WhitePlayer, g.BlackPlayer
}

// IsFinished reports whether the game has a result.
func (g *Game) IsFinished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Status == StatusFinished
}
