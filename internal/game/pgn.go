package game

import (
	"fmt"
	"strings"
	"time"
)

// PGN exports the game's move record with a minimal tag pair section.
// Moves are written in coordinate notation.
func (g *Game) PGN() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder

	result := "*"
	if g.Result != nil {
		switch {
		case g.Result.Outcome.IsDraw():
			result = "1/2-1/2"
		case g.Result.Winner == g.WhitePlayer:
			result = "1-0"
		default:
			result = "0-1"
		}
	}

	fmt.Fprintf(&sb, "[Event \"Casual game\"]\n")
	fmt.Fprintf(&sb, "[Site \"chessnet\"]\n")
	fmt.Fprintf(&sb, "[Date \"%s\"]\n", time.Unix(int64(g.CreatedAt), 0).UTC().Format("2006.01.02"))
	fmt.Fprintf(&sb, "[White \"%s\"]\n", tagValue(g.WhitePlayer))
	fmt.Fprintf(&sb, "[Black \"%s\"]\n", tagValue(g.BlackPlayer))
	fmt.Fprintf(&sb, "[Result \"%s\"]\n\n", result)

	for i, m := range g.MoveHistory {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "%d. ", i/2+1)
		}
		sb.WriteString(m.String())
		sb.WriteByte(' ')
	}
	sb.WriteString(result)
	sb.WriteByte('\n')

	return sb.String()
}

func tagValue(s string) string {
	if s == "" {
		return "?"
	}
	return strings.ReplaceAll(s, "\"", "")
}
