package board

// Ray directions for classical sliding attack generation.
const (
	dirN = iota
	dirNE
	dirE
	dirSE
	dirS
	dirSW
	dirW
	dirNW
)

// Pre-computed attack tables.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square], diagonal captures only

	rayAttacks [8][64]Bitboard // [direction][Square], ray to the board edge
	betweenBB  [64][64]Bitboard // squares strictly between two aligned squares
)

var dirDeltas = [8][2]int{
	dirN:  {0, 1},
	dirNE: {1, 1},
	dirE:  {1, 0},
	dirSE: {1, -1},
	dirS:  {0, -1},
	dirSW: {-1, -1},
	dirW:  {-1, 0},
	dirNW: {-1, 1},
}

func init() {
	initLeaperAttacks()
	initRays()
	initBetween()
}

func initLeaperAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		// Knight moves: 2+1 or 1+2 in any direction.
		attacks := Empty
		attacks |= (bb << 17) & NotFileA
		attacks |= (bb << 15) & NotFileH
		attacks |= (bb >> 17) & NotFileH
		attacks |= (bb >> 15) & NotFileA
		attacks |= (bb << 10) & NotFileAB
		attacks |= (bb << 6) & NotFileGH
		attacks |= (bb >> 10) & NotFileGH
		attacks |= (bb >> 6) & NotFileAB
		knightAttacks[sq] = attacks

		// King moves: one square in any direction.
		kingAttacks[sq] = bb.North() | bb.South() |
			(bb<<1)&NotFileA | (bb>>1)&NotFileH |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		// Pawn attacks are diagonal captures only, never forward pushes.
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

func initRays() {
	for sq := A1; sq <= H8; sq++ {
		for dir, delta := range dirDeltas {
			var ray Bitboard
			f, r := sq.File()+delta[0], sq.Rank()+delta[1]
			for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
				ray |= SquareBB(NewSquare(f, r))
				f += delta[0]
				r += delta[1]
			}
			rayAttacks[dir][sq] = ray
		}
	}
}

func initBetween() {
	for sq1 := A1; sq1 <= H8; sq1++ {
		for sq2 := A1; sq2 <= H8; sq2++ {
			if sq1 == sq2 {
				continue
			}
			df := sign(sq2.File() - sq1.File())
			dr := sign(sq2.Rank() - sq1.Rank())
			if df != 0 && dr != 0 && abs(sq2.File()-sq1.File()) != abs(sq2.Rank()-sq1.Rank()) {
				continue // not on a line
			}

			var between Bitboard
			f, r := sq1.File()+df, sq1.Rank()+dr
			for f != sq2.File() || r != sq2.Rank() {
				between |= SquareBB(NewSquare(f, r))
				f += df
				r += dr
			}
			betweenBB[sq1][sq2] = between
		}
	}
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// slidingAttacks walks the given rays from sq and cuts each ray at its
// first blocker. Positive rays use LSB for the nearest blocker, negative
// rays use MSB.
func slidingAttacks(sq Square, occupied Bitboard, dirs []int) Bitboard {
	var attacks Bitboard
	for _, dir := range dirs {
		ray := rayAttacks[dir][sq]
		blockers := ray & occupied
		if blockers != 0 {
			var first Square
			if dir == dirN || dir == dirNE || dir == dirE || dir == dirNW {
				first = blockers.LSB()
			} else {
				first = blockers.MSB()
			}
			ray &^= rayAttacks[dir][first]
		}
		attacks |= ray
	}
	return attacks
}

var (
	rookDirs   = []int{dirN, dirE, dirS, dirW}
	bishopDirs = []int{dirNE, dirSE, dirSW, dirNW}
)

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the pawn capture bitboard for a square and color.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// RookAttacks returns the rook attack bitboard for a square with given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return slidingAttacks(sq, occupied, rookDirs)
}

// BishopAttacks returns the bishop attack bitboard for a square with given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return slidingAttacks(sq, occupied, bishopDirs)
}

// QueenAttacks returns the queen attack bitboard for a square with given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return RookAttacks(sq, occupied) | BishopAttacks(sq, occupied)
}

// Between returns the bitboard of squares strictly between two squares.
// Returns empty if the squares are not on a shared rank, file or diagonal.
func Between(sq1, sq2 Square) Bitboard {
	return betweenBB[sq1][sq2]
}

// AttackersByColor returns a bitboard of pieces of the given color
// attacking a square under the given occupancy.
func (p *Position) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	enemy := c.Other()
	return (pawnAttacks[enemy][sq] & p.Pieces[c][Pawn]) |
		(knightAttacks[sq] & p.Pieces[c][Knight]) |
		(kingAttacks[sq] & p.Pieces[c][King]) |
		(BishopAttacks(sq, occupied) & (p.Pieces[c][Bishop] | p.Pieces[c][Queen])) |
		(RookAttacks(sq, occupied) & (p.Pieces[c][Rook] | p.Pieces[c][Queen]))
}

// IsSquareAttacked returns true if the square is attacked by the given color.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	return p.AttackersByColor(sq, byColor, p.AllOccupied) != 0
}

// InCheck returns true if the given color's king is attacked.
func (p *Position) InCheck(c Color) bool {
	kingSq := p.KingSquare[c]
	if kingSq == NoSquare {
		return false
	}
	return p.IsSquareAttacked(kingSq, c.Other())
}
