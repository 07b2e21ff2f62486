// Package motif detects tactical and structural patterns around a single move.
//
// Every detector takes the position before the move and the move itself. Any
// look-ahead goes through position.Peek so the caller's stack is left as it
// was found.
package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// Target is a piece picked out by a detector, with its kind captured in the
// position the detector examined.
type Target struct {
	Square chesslib.Square
	Kind   position.Kind
}

func targets(p *position.Position, squares []chesslib.Square) []Target {
	if len(squares) == 0 {
		return nil
	}
	out := make([]Target, 0, len(squares))
	for _, sq := range squares {
		out = append(out, Target{Square: sq, Kind: p.KindAt(sq)})
	}
	return out
}

// Squares returns the squares of ts in order.
func Squares(ts []Target) []chesslib.Square {
	out := make([]chesslib.Square, len(ts))
	for i, t := range ts {
		out[i] = t.Square
	}
	return out
}

func capturedKind(p *position.Position, m *chesslib.Move) position.Kind {
	if p.IsEnPassant(m) {
		return position.Pawn
	}
	return p.KindAt(m.S2())
}
