package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN of the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string into a Position.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(strings.TrimSpace(fen))
	if len(fields) < 4 {
		return nil, fmt.Errorf("fen must have at least 4 fields, got %d", len(fields))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}

	// Field 1: piece placement, rank 8 first.
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("fen placement must have 8 ranks, got %d", len(ranks))
	}
	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(c)
			if piece == NoPiece {
				return nil, fmt.Errorf("invalid fen piece char: %c", c)
			}
			if file > 7 {
				return nil, fmt.Errorf("fen rank overflow: %s", rankStr)
			}
			pos.Pieces[piece.Color()][piece.Type()] |= SquareBB(NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return nil, fmt.Errorf("fen rank does not span 8 files: %s", rankStr)
		}
	}

	// Field 2: side to move.
	switch fields[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", fields[1])
	}

	// Field 3: castling rights.
	if fields[2] != "-" {
		for j := 0; j < len(fields[2]); j++ {
			switch fields[2][j] {
			case 'K':
				pos.CastlingRights |= WhiteKingSideCastle
			case 'Q':
				pos.CastlingRights |= WhiteQueenSideCastle
			case 'k':
				pos.CastlingRights |= BlackKingSideCastle
			case 'q':
				pos.CastlingRights |= BlackQueenSideCastle
			default:
				return nil, fmt.Errorf("invalid castling char: %c", fields[2][j])
			}
		}
	}

	// Field 4: en passant target square.
	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", fields[3])
		}
		pos.EnPassant = sq
	}

	// Fields 5 and 6 are optional.
	if len(fields) > 4 {
		hm, err := strconv.Atoi(fields[4])
		if err != nil || hm < 0 {
			return nil, fmt.Errorf("invalid half-move clock: %s", fields[4])
		}
		pos.HalfMoveClock = hm
	}
	if len(fields) > 5 {
		fm, err := strconv.Atoi(fields[5])
		if err != nil || fm < 1 {
			return nil, fmt.Errorf("invalid full move number: %s", fields[5])
		}
		pos.FullMoveNumber = fm
	}

	pos.updateOccupied()
	pos.findKings()

	if err := pos.Validate(); err != nil {
		return nil, err
	}

	return pos, nil
}

// ToFEN serializes the position to a full six-field FEN string.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	if p.SideToMove == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}

	sb.WriteString(p.CastlingRights.String())
	sb.WriteByte(' ')

	if p.EnPassant == NoSquare {
		sb.WriteByte('-')
	} else {
		sb.WriteString(p.EnPassant.String())
	}

	sb.WriteString(fmt.Sprintf(" %d %d", p.HalfMoveClock, p.FullMoveNumber))

	return sb.String()
}

// Key returns the repetition key for the position: the first four FEN
// fields. Two positions with the same key are the same for threefold
// repetition purposes regardless of move counters.
func (p *Position) Key() string {
	fen := p.ToFEN()
	fields := strings.Fields(fen)
	return strings.Join(fields[:4], " ")
}
