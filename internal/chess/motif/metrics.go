package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// Pair holds one number per side.
type Pair struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Metrics summarizes a position for charting.
type Metrics struct {
	Development Pair `json:"development"`
	Mobility    Pair `json:"mobility"`
	Tension     Pair `json:"tension"`
	Control     Pair `json:"control"`
}

var homeSquares = []struct {
	square string
	color  chesslib.Color
	kind   position.Kind
}{
	{"a1", chesslib.White, position.Rook}, {"h1", chesslib.White, position.Rook},
	{"b1", chesslib.White, position.Knight}, {"g1", chesslib.White, position.Knight},
	{"c1", chesslib.White, position.Bishop}, {"f1", chesslib.White, position.Bishop},
	{"d1", chesslib.White, position.Queen},
	{"a8", chesslib.Black, position.Rook}, {"h8", chesslib.Black, position.Rook},
	{"b8", chesslib.Black, position.Knight}, {"g8", chesslib.Black, position.Knight},
	{"c8", chesslib.Black, position.Bishop}, {"f8", chesslib.Black, position.Bishop},
	{"d8", chesslib.Black, position.Queen},
}

// Measure computes the per-side metrics of p.
func Measure(p *position.Position) Metrics {
	return Metrics{
		Development: Development(p),
		Mobility:    Mobility(p),
		Tension:     Tension(p),
		Control:     Control(p),
	}
}

// Development counts home squares no longer holding their original piece.
func Development(p *position.Position) Pair {
	var out Pair
	for _, h := range homeSquares {
		sq := position.MustSquare(h.square)
		if p.Occupied(h.color, sq) && p.KindAt(sq) == h.kind {
			continue
		}
		if h.color == chesslib.White {
			out.White++
		} else {
			out.Black++
		}
	}
	return out
}

// Mobility counts legal non-pawn moves for each side, passing the turn to
// measure the side not on move.
func Mobility(p *position.Position) Pair {
	count := func(q *position.Position) int {
		n := 0
		for _, m := range q.LegalMoves() {
			if q.MovingKind(m) != position.Pawn {
				n++
			}
		}
		return n
	}
	return perSide(p, count)
}

// Tension counts legal captures for each side.
func Tension(p *position.Position) Pair {
	count := func(q *position.Position) int {
		n := 0
		for _, m := range q.LegalMoves() {
			if q.IsCapture(m) {
				n++
			}
		}
		return n
	}
	return perSide(p, count)
}

// Control sums the attack sets of each side's pieces.
func Control(p *position.Position) Pair {
	var out Pair
	for _, sq := range p.Pieces(chesslib.White).Squares() {
		out.White += p.Attacks(sq).Len()
	}
	for _, sq := range p.Pieces(chesslib.Black).Squares() {
		out.Black += p.Attacks(sq).Len()
	}
	return out
}

func perSide(p *position.Position, count func(*position.Position) int) Pair {
	own := count(p)
	other := position.PeekNull(p, count)
	if p.Turn() == chesslib.White {
		return Pair{White: own, Black: other}
	}
	return Pair{White: other, Black: own}
}
