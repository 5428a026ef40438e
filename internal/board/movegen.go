package board

import "fmt"

// ApplyMove plays a move on the position, mutating it in place. The move
// is assumed to be legal; use IsValidMove first for untrusted input.
func (p *Position) ApplyMove(m Move) {
	from, to := m.From(), m.To()
	us := p.SideToMove
	them := us.Other()
	moving := p.PieceAt(from)

	isPawnMove := moving.Type() == Pawn
	isCapture := p.IsOccupiedBy(to, them) || m.IsEnPassant()

	// Remove any captured piece before moving.
	if m.IsEnPassant() {
		var capSq Square
		if us == White {
			capSq = to - 8
		} else {
			capSq = to + 8
		}
		p.Remove(capSq)
	} else if isCapture {
		p.Remove(to)
	}

	p.movePiece(from, to)

	switch {
	case m.IsPromotion():
		p.Remove(to)
		p.Place(NewPiece(m.Promotion(), us), to)
	case m.IsCastling():
		// Relocate the rook alongside the king.
		switch to {
		case G1:
			p.movePiece(H1, F1)
		case C1:
			p.movePiece(A1, D1)
		case G8:
			p.movePiece(H8, F8)
		case C8:
			p.movePiece(A8, D8)
		}
	}

	// Castling rights are lost when the king or a rook moves, or when a
	// rook is captured on its home square.
	switch from {
	case E1:
		p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
	case E8:
		p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
	case H1:
		p.CastlingRights &^= WhiteKingSideCastle
	case A1:
		p.CastlingRights &^= WhiteQueenSideCastle
	case H8:
		p.CastlingRights &^= BlackKingSideCastle
	case A8:
		p.CastlingRights &^= BlackQueenSideCastle
	}
	switch to {
	case H1:
		p.CastlingRights &^= WhiteKingSideCastle
	case A1:
		p.CastlingRights &^= WhiteQueenSideCastle
	case H8:
		p.CastlingRights &^= BlackKingSideCastle
	case A8:
		p.CastlingRights &^= BlackQueenSideCastle
	}

	// A double pawn push opens an en passant window for one ply.
	p.EnPassant = NoSquare
	if isPawnMove {
		if us == White && to-from == 16 {
			p.EnPassant = from + 8
		} else if us == Black && from-to == 16 {
			p.EnPassant = from - 8
		}
	}

	if isPawnMove || isCapture {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = them
}

// leavesKingInCheck plays the move on a copy and reports whether the
// mover's own king would be attacked afterwards.
func (p *Position) leavesKingInCheck(m Move) bool {
	us := p.SideToMove
	test := p.Copy()
	test.ApplyMove(m)
	return test.InCheck(us)
}

// IsValidMove reports whether the move is legal in the position for the
// side to move. It returns a descriptive error for illegal moves.
func (p *Position) IsValidMove(m Move) error {
	from, to := m.From(), m.To()
	if !from.IsValid() || !to.IsValid() || from == to {
		return fmt.Errorf("move squares out of range")
	}

	piece := p.PieceAt(from)
	if piece == NoPiece {
		return fmt.Errorf("no piece on %s", from)
	}
	if piece.Color() != p.SideToMove {
		return fmt.Errorf("piece on %s is not yours to move", from)
	}

	// Promotions must be flagged when a pawn reaches the last rank.
	if piece.Type() == Pawn && (to.Rank() == 0 || to.Rank() == 7) && !m.IsPromotion() {
		return fmt.Errorf("pawn move to %s requires a promotion piece", to)
	}

	found := false
	for _, pm := range p.pseudoLegalMoves() {
		if pm == m {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s is not a legal %s move", m, piece.Type())
	}

	if p.leavesKingInCheck(m) {
		if p.InCheck(p.SideToMove) {
			return fmt.Errorf("king is in check")
		}
		return fmt.Errorf("move would leave king in check")
	}

	return nil
}

// GenerateLegalMoves returns every legal move for the side to move.
func (p *Position) GenerateLegalMoves() []Move {
	pseudo := p.pseudoLegalMoves()
	legal := make([]Move, 0, len(pseudo))
	for _, m := range pseudo {
		if !p.leavesKingInCheck(m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// HasLegalMoves reports whether the side to move has at least one
// legal move. Cheaper than generating the full list.
func (p *Position) HasLegalMoves() bool {
	for _, m := range p.pseudoLegalMoves() {
		if !p.leavesKingInCheck(m) {
			return true
		}
	}
	return false
}

// IsCheckmate reports whether the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck(p.SideToMove) && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move is stalemated.
func (p *Position) IsStalemate() bool {
	return !p.InCheck(p.SideToMove) && !p.HasLegalMoves()
}

// IsInsufficientMaterial reports whether neither side can possibly
// deliver checkmate: no pawns, rooks or queens on the board, and each
// side has at most one minor piece.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 {
		return false
	}
	if p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 {
		return false
	}
	if p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}
	for c := White; c <= Black; c++ {
		minors := (p.Pieces[c][Knight] | p.Pieces[c][Bishop]).PopCount()
		if minors > 1 {
			return false
		}
	}
	return true
}

// pseudoLegalMoves generates moves that obey piece movement rules but
// may leave the own king in check.
func (p *Position) pseudoLegalMoves() []Move {
	moves := make([]Move, 0, 64)
	us := p.SideToMove

	moves = p.genPawnMoves(moves, us)
	moves = p.genKnightMoves(moves, us)
	moves = p.genSliderMoves(moves, us, Bishop)
	moves = p.genSliderMoves(moves, us, Rook)
	moves = p.genSliderMoves(moves, us, Queen)
	moves = p.genKingMoves(moves, us)
	moves = p.genCastlingMoves(moves, us)

	return moves
}

func (p *Position) genPawnMoves(moves []Move, us Color) []Move {
	pawns := p.Pieces[us][Pawn]
	them := us.Other()

	var pushDelta int
	var startRank, promoRank Bitboard
	if us == White {
		pushDelta = 8
		startRank = Rank2
		promoRank = Rank8
	} else {
		pushDelta = -8
		startRank = Rank7
		promoRank = Rank1
	}

	appendPawn := func(from, to Square) []Move {
		if SquareBB(to)&promoRank != 0 {
			for _, promo := range []PieceType{Queen, Rook, Bishop, Knight} {
				moves = append(moves, NewPromotion(from, to, promo))
			}
		} else {
			moves = append(moves, NewMove(from, to))
		}
		return moves
	}

	for bb := pawns; bb != 0; {
		from := bb.PopLSB()

		// Single and double pushes.
		oneUp := Square(int(from) + pushDelta)
		if p.IsEmpty(oneUp) {
			moves = appendPawn(from, oneUp)
			if SquareBB(from)&startRank != 0 {
				twoUp := Square(int(oneUp) + pushDelta)
				if p.IsEmpty(twoUp) {
					moves = append(moves, NewMove(from, twoUp))
				}
			}
		}

		// Captures, including en passant.
		for caps := PawnAttacks(from, us); caps != 0; {
			to := caps.PopLSB()
			if p.IsOccupiedBy(to, them) {
				moves = appendPawn(from, to)
			} else if to == p.EnPassant {
				moves = append(moves, NewEnPassant(from, to))
			}
		}
	}

	return moves
}

func (p *Position) genKnightMoves(moves []Move, us Color) []Move {
	for bb := p.Pieces[us][Knight]; bb != 0; {
		from := bb.PopLSB()
		for targets := KnightAttacks(from) &^ p.Occupied[us]; targets != 0; {
			moves = append(moves, NewMove(from, targets.PopLSB()))
		}
	}
	return moves
}

func (p *Position) genSliderMoves(moves []Move, us Color, pt PieceType) []Move {
	for bb := p.Pieces[us][pt]; bb != 0; {
		from := bb.PopLSB()

		var attacks Bitboard
		switch pt {
		case Bishop:
			attacks = BishopAttacks(from, p.AllOccupied)
		case Rook:
			attacks = RookAttacks(from, p.AllOccupied)
		case Queen:
			attacks = QueenAttacks(from, p.AllOccupied)
		}

		for targets := attacks &^ p.Occupied[us]; targets != 0; {
			moves = append(moves, NewMove(from, targets.PopLSB()))
		}
	}
	return moves
}

func (p *Position) genKingMoves(moves []Move, us Color) []Move {
	from := p.KingSquare[us]
	if from == NoSquare {
		return moves
	}
	for targets := KingAttacks(from) &^ p.Occupied[us]; targets != 0; {
		moves = append(moves, NewMove(from, targets.PopLSB()))
	}
	return moves
}

// genCastlingMoves generates castling when the rights remain, the path
// is empty, and the king does not pass through an attacked square.
func (p *Position) genCastlingMoves(moves []Move, us Color) []Move {
	them := us.Other()

	type castle struct {
		right      CastlingRights
		kingFrom   Square
		kingTo     Square
		mustBeOpen []Square
		noAttack   []Square
	}

	var castles []castle
	if us == White {
		castles = []castle{
			{WhiteKingSideCastle, E1, G1, []Square{F1, G1}, []Square{E1, F1, G1}},
			{WhiteQueenSideCastle, E1, C1, []Square{D1, C1, B1}, []Square{E1, D1, C1}},
		}
	} else {
		castles = []castle{
			{BlackKingSideCastle, E8, G8, []Square{F8, G8}, []Square{E8, F8, G8}},
			{BlackQueenSideCastle, E8, C8, []Square{D8, C8, B8}, []Square{E8, D8, C8}},
		}
	}

next:
	for _, c := range castles {
		if p.CastlingRights&c.right == 0 {
			continue
		}
		for _, sq := range c.mustBeOpen {
			if !p.IsEmpty(sq) {
				continue next
			}
		}
		for _, sq := range c.noAttack {
			if p.IsSquareAttacked(sq, them) {
				continue next
			}
		}
		moves = append(moves, NewCastling(c.kingFrom, c.kingTo))
	}

	return moves
}
