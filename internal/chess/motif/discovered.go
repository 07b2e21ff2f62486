package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// IsDiscoveredCheck reports whether m gives check with a piece other than the
// one that moved.
func IsDiscoveredCheck(p *position.Position, m *chesslib.Move) bool {
	return position.Peek(p, m, func(q *position.Position) bool {
		if !q.IsCheck() {
			return false
		}
		king, ok := q.King(q.Turn())
		return ok && !q.Attacks(m.S2()).Has(king)
	})
}

// DiscoveredCheckAttacks lists what the moved piece wins while the opponent
// deals with a discovered check: undefended pieces or pieces worth more.
func DiscoveredCheckAttacks(p *position.Position, m *chesslib.Move) []Target {
	if !IsDiscoveredCheck(p, m) {
		return nil
	}
	mover := p.Turn()
	opp := position.Other(mover)
	return position.Peek(p, m, func(q *position.Position) []Target {
		moved := q.KindAt(m.S2())
		var out []chesslib.Square
		for _, sq := range q.Attacks(m.S2()).Squares() {
			if !q.Occupied(opp, sq) {
				continue
			}
			if HangingTo(q, sq, mover) || q.KindAt(sq) > moved {
				out = append(out, sq)
			}
		}
		return targets(q, out)
	})
}
