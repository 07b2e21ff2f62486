package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

var (
	knightHomes = squareSet("b1", "g1", "b8", "g8")
	bishopHomes = squareSet("c1", "f1", "c8", "f8")
	rookHomes   = squareSet("a1", "h1", "a8", "h8")
	fianchettos = squareSet("b2", "g2", "b7", "g7")
)

func squareSet(names ...string) position.SquareSet {
	var s position.SquareSet
	for _, n := range names {
		s = s.With(position.MustSquare(n))
	}
	return s
}

// Developing returns the kind of minor piece or rook that m brings off its
// starting square, NoKind otherwise.
func Developing(p *position.Position, m *chesslib.Move) position.Kind {
	k := p.MovingKind(m)
	from := m.S1()
	switch {
	case k == position.Knight && knightHomes.Has(from):
		return position.Knight
	case k == position.Bishop && bishopHomes.Has(from):
		return position.Bishop
	case k == position.Rook && rookHomes.Has(from):
		return position.Rook
	}
	return position.NoKind
}

// IsFianchetto reports a bishop leaving its home square for the long diagonal
// next to the knight's corner.
func IsFianchetto(p *position.Position, m *chesslib.Move) bool {
	return p.MovingKind(m) == position.Bishop && bishopHomes.Has(m.S1()) && fianchettos.Has(m.S2())
}

// RookToOpenFile reports a sideways rook move from the first two ranks of
// either side onto a file holding fewer than three pieces.
func RookToOpenFile(p *position.Position, m *chesslib.Move) bool {
	if p.MovingKind(m) != position.Rook {
		return false
	}
	rank := position.Rank(m.S1())
	if rank > 1 && rank < 6 {
		return false
	}
	if rank != position.Rank(m.S2()) {
		return false
	}
	file := position.File(m.S2())
	pieces := 0
	for r := 0; r < 8; r++ {
		if p.KindAt(position.Square(file, r)) != position.NoKind {
			pieces++
		}
	}
	return pieces < 3
}

// IsEndgame reports fewer than six knights, bishops, rooks and queens on the board.
func IsEndgame(p *position.Position) bool {
	n := 0
	for sq := 0; sq < 64; sq++ {
		switch p.KindAt(chesslib.Square(sq)) {
		case position.Knight, position.Bishop, position.Rook, position.Queen:
			n++
		}
	}
	return n < 6
}

// KingOffBackRank reports an endgame king step off the first or last rank.
func KingOffBackRank(p *position.Position, m *chesslib.Move) bool {
	if !IsEndgame(p) || p.MovingKind(m) != position.King {
		return false
	}
	back := func(sq chesslib.Square) bool {
		r := position.Rank(sq)
		return r == 0 || r == 7
	}
	return back(m.S1()) && !back(m.S2())
}

// BlocksCheck reports a non-capturing answer to check that keeps the king in place.
func BlocksCheck(p *position.Position, m *chesslib.Move) bool {
	return p.IsCheck() && !p.IsCapture(m) && p.MovingKind(m) != position.King
}
