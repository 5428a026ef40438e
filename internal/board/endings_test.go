package board

import "testing"

func TestBackRankCheckmate(t *testing.T) {
	pos, err := ParseFEN("R6k/6pp/8/8/8/8/8/6K1 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	if !pos.InCheck(Black) {
		t.Fatal("black should be in check")
	}
	if !pos.IsCheckmate() {
		t.Error("position should be checkmate")
	}
	if pos.IsStalemate() {
		t.Error("checkmate is not stalemate")
	}
	if len(pos.GenerateLegalMoves()) != 0 {
		t.Error("checkmated side should have no legal moves")
	}
}

func TestScholarsMate(t *testing.T) {
	pos := NewPosition()

	for _, s := range []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"} {
		m, err := ParseMove(s, pos)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		if err := pos.IsValidMove(m); err != nil {
			t.Fatalf("move %s should be legal: %v", s, err)
		}
		pos.ApplyMove(m)
	}

	if !pos.IsCheckmate() {
		t.Error("scholar's mate should end in checkmate")
	}
	if pos.SideToMove != Black {
		t.Errorf("black should be the side to move, got %s", pos.SideToMove)
	}
}

func TestStalemate(t *testing.T) {
	// Black king in the corner with no moves but not in check.
	pos, err := ParseFEN("7k/8/6QK/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	if pos.InCheck(Black) {
		t.Fatal("black should not be in check")
	}
	if !pos.IsStalemate() {
		t.Error("position should be stalemate")
	}
	if pos.IsCheckmate() {
		t.Error("stalemate is not checkmate")
	}
}

func TestInsufficientMaterial(t *testing.T) {
	insufficient := []string{
		"8/8/4k3/8/8/3K4/8/8 w - - 0 1",      // K vs K
		"8/8/4k3/8/8/3KB3/8/8 w - - 0 1",     // K+B vs K
		"8/8/4k3/8/8/3KN3/8/8 w - - 0 1",     // K+N vs K
		"8/5b2/4k3/8/8/3KB3/8/8 w - - 0 1",   // K+B vs K+B
	}
	sufficient := []string{
		StartFEN,
		"8/8/4k3/8/8/3KP3/8/8 w - - 0 1",     // lone pawn can promote
		"8/8/4k3/8/8/3KR3/8/8 w - - 0 1",     // rook
		"8/8/4k3/8/8/3KQ3/8/8 w - - 0 1",     // queen
		"8/8/4k3/8/8/2NKN3/8/8 w - - 0 1",    // two knights on one side
	}

	for _, fen := range insufficient {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		if !pos.IsInsufficientMaterial() {
			t.Errorf("%s should be insufficient material", fen)
		}
	}
	for _, fen := range sufficient {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		if pos.IsInsufficientMaterial() {
			t.Errorf("%s should not be insufficient material", fen)
		}
	}
}
