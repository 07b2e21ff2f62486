package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// IsHanging reports whether the piece on sq is attacked and has no defender.
// Kings are never hanging.
func IsHanging(p *position.Position, sq chesslib.Square) bool {
	c, ok := p.ColorAt(sq)
	if !ok || p.KindAt(sq) == position.King {
		return false
	}
	return HangingTo(p, sq, position.Other(c))
}

// HangingTo reports whether by can take the piece on sq without it being
// defended.
func HangingTo(p *position.Position, sq chesslib.Square, by chesslib.Color) bool {
	c, ok := p.ColorAt(sq)
	if !ok || c == by || p.KindAt(sq) == position.King {
		return false
	}
	return p.IsAttackedBy(by, sq) && !p.IsDefended(sq, c)
}

// Hanging returns c's hanging pieces.
func Hanging(p *position.Position, c chesslib.Color) position.SquareSet {
	var set position.SquareSet
	for _, sq := range p.Pieces(c).Squares() {
		if IsHanging(p, sq) {
			set = set.With(sq)
		}
	}
	return set
}

// HangingAfter lists the mover's hanging pieces once m is played.
func HangingAfter(p *position.Position, m *chesslib.Move) []Target {
	mover := p.Turn()
	return position.Peek(p, m, func(q *position.Position) []Target {
		return targets(q, Hanging(q, mover).Squares())
	})
}

// HangsPiece reports whether m leaves a mover's piece hanging that was not
// hanging before.
func HangsPiece(p *position.Position, m *chesslib.Move) bool {
	mover := p.Turn()
	before := Hanging(p, mover)
	if before.Has(m.S1()) {
		before = before.Without(m.S1()).With(m.S2())
	}
	after := position.Peek(p, m, func(q *position.Position) position.SquareSet {
		return Hanging(q, mover)
	})
	return !(after &^ before).Empty()
}

// DefendsHanging lists the mover's pieces that had no defender before m and
// are covered by the moved piece afterwards. Castling defends nothing.
func DefendsHanging(p *position.Position, m *chesslib.Move) []Target {
	if p.IsCastling(m) {
		return nil
	}
	mover := p.Turn()
	var undefended position.SquareSet
	for _, sq := range p.Pieces(mover).Squares() {
		if !p.IsDefended(sq, mover) {
			undefended = undefended.With(sq)
		}
	}
	return position.Peek(p, m, func(q *position.Position) []Target {
		var out []chesslib.Square
		for _, sq := range q.Attacks(m.S2()).Squares() {
			if q.Occupied(mover, sq) && q.KindAt(sq) != position.King && undefended.Has(sq) {
				out = append(out, sq)
			}
		}
		return targets(q, out)
	})
}

// CapturesFreePiece reports whether m takes an undefended piece.
func CapturesFreePiece(p *position.Position, m *chesslib.Move) bool {
	return p.IsCapture(m) && HangingTo(p, m.S2(), p.Turn())
}

// CapturesHigherPiece reports whether m takes a piece worth more than the
// capturing one. En passant never qualifies.
func CapturesHigherPiece(p *position.Position, m *chesslib.Move) bool {
	if !p.IsCapture(m) || p.IsEnPassant(m) {
		return false
	}
	return p.MovingKind(m) < p.KindAt(m.S2())
}

// CapturableByLower lists the pieces of the side not to move that the side to
// move attacks with something cheaper.
func CapturableByLower(p *position.Position) []Target {
	side := p.Turn()
	var out []chesslib.Square
	for _, sq := range p.Pieces(position.Other(side)).Squares() {
		k := p.KindAt(sq)
		if k == position.King {
			continue
		}
		for _, a := range p.Attackers(side, sq).Squares() {
			if p.KindAt(a) < k {
				out = append(out, sq)
				break
			}
		}
	}
	return targets(p, out)
}
