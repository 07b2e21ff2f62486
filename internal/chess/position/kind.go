package position

import (
	"math/bits"

	chesslib "github.com/corentings/chess/v2"
)

// Kind is a piece type ordered by material value. King is the largest value
// so it never compares as "cheaper" than anything it attacks.
type Kind int

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return ""
	}
}

// KindOf maps a library piece type onto the value-ordered Kind.
func KindOf(pt chesslib.PieceType) Kind {
	switch pt {
	case chesslib.Pawn:
		return Pawn
	case chesslib.Knight:
		return Knight
	case chesslib.Bishop:
		return Bishop
	case chesslib.Rook:
		return Rook
	case chesslib.Queen:
		return Queen
	case chesslib.King:
		return King
	default:
		return NoKind
	}
}

// MinorPair reports whether a and b are a knight and a bishop in either order.
func MinorPair(a, b Kind) bool {
	return (a == Knight && b == Bishop) || (a == Bishop && b == Knight)
}

// SquareSet is a set of board squares, bit i standing for square i (A1 = 0).
type SquareSet uint64

func (s SquareSet) Has(sq chesslib.Square) bool {
	return uint(sq) < 64 && s&(1<<uint(sq)) != 0
}

func (s SquareSet) With(sq chesslib.Square) SquareSet {
	return s | 1<<uint(sq)
}

func (s SquareSet) Without(sq chesslib.Square) SquareSet {
	return s &^ (1 << uint(sq))
}

func (s SquareSet) Len() int { return bits.OnesCount64(uint64(s)) }

func (s SquareSet) Empty() bool { return s == 0 }

// Squares lists members in ascending square order.
func (s SquareSet) Squares() []chesslib.Square {
	out := make([]chesslib.Square, 0, s.Len())
	for v := uint64(s); v != 0; v &= v - 1 {
		out = append(out, chesslib.Square(bits.TrailingZeros64(v)))
	}
	return out
}

// Other returns the opposing color.
func Other(c chesslib.Color) chesslib.Color {
	if c == chesslib.White {
		return chesslib.Black
	}
	return chesslib.White
}
