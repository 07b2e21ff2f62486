package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// ForkTargets lists the enemy pieces the piece on sq threatens profitably:
// undefended ones and ones worth more than the attacker. A pawn never forks,
// and neither does a piece that is itself hanging.
func ForkTargets(p *position.Position, sq chesslib.Square) []Target {
	c, ok := p.ColorAt(sq)
	k := p.KindAt(sq)
	if !ok || k == position.Pawn {
		return nil
	}
	opp := position.Other(c)
	if p.IsAttackedBy(opp, sq) && !p.IsDefended(sq, c) {
		return nil
	}
	var out []chesslib.Square
	for _, t := range p.Attacks(sq).Squares() {
		if !p.Occupied(opp, t) {
			continue
		}
		if !p.IsDefended(t, opp) || p.KindAt(t) > k {
			out = append(out, t)
		}
	}
	return targets(p, out)
}

// CreatesFork returns the forked pieces after m, or nil when m is not a fork.
func CreatesFork(p *position.Position, m *chesslib.Move) []Target {
	return position.Peek(p, m, func(q *position.Position) []Target {
		ts := ForkTargets(q, m.S2())
		if len(ts) < 2 {
			return nil
		}
		return ts
	})
}
