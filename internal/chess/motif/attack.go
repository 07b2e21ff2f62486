package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// AttackedPiece returns the first enemy piece, other than the king, that the
// moved piece threatens after m: one worth more than the mover, or one left
// undefended. A piece that lands en prise without support threatens nothing.
func AttackedPiece(p *position.Position, m *chesslib.Move) (Target, bool) {
	mover := p.Turn()
	opp := position.Other(mover)
	wasAttacked := p.IsAttackedBy(opp, m.S2())

	type result struct {
		t  Target
		ok bool
	}
	r := position.Peek(p, m, func(q *position.Position) result {
		if wasAttacked && !q.IsDefended(m.S2(), mover) {
			return result{}
		}
		moved := q.KindAt(m.S2())
		for _, sq := range q.Attacks(m.S2()).Squares() {
			if !q.Occupied(opp, sq) || q.KindAt(sq) == position.King {
				continue
			}
			if q.KindAt(sq) > moved || HangingTo(q, sq, mover) {
				return result{Target{Square: sq, Kind: q.KindAt(sq)}, true}
			}
		}
		return result{}
	})
	return r.t, r.ok
}
