package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// PinsOpponent returns the first enemy piece the moved piece attacks that is
// pinned to its king after m. A move onto an attacked, undefended square
// pins nothing since the pinning piece is simply taken.
func PinsOpponent(p *position.Position, m *chesslib.Move) (Target, bool) {
	mover := p.Turn()
	opp := position.Other(mover)
	if p.IsAttackedBy(opp, m.S2()) && !p.IsDefended(m.S2(), mover) {
		return Target{}, false
	}
	type result struct {
		t  Target
		ok bool
	}
	r := position.Peek(p, m, func(q *position.Position) result {
		for _, sq := range q.Attacks(m.S2()).Squares() {
			if q.Occupied(opp, sq) && q.IsPinned(opp, sq) {
				return result{Target{Square: sq, Kind: q.KindAt(sq)}, true}
			}
		}
		return result{}
	})
	return r.t, r.ok
}
