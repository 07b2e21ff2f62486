package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// IsTrapped reports whether the piece on sq is attacked by something cheaper
// belonging to by and has nowhere to go. A square is an escape when by does
// not cover it at all, or covers it only with pieces that are pinned or worth
// more than the trapped piece, or with an equal piece that is itself guarded
// more than once. The search looks one move ahead only. Kings are never
// trapped.
func IsTrapped(p *position.Position, sq chesslib.Square, by chesslib.Color) bool {
	k := p.KindAt(sq)
	c, ok := p.ColorAt(sq)
	if !ok || c == by || k == position.King {
		return false
	}

	lower := false
	for _, a := range p.Attackers(by, sq).Squares() {
		if p.KindAt(a) < k {
			lower = true
			break
		}
	}
	if !lower {
		return false
	}

	candidates := 0
	for _, dest := range p.Attacks(sq).Squares() {
		if occ, ok := p.ColorAt(dest); ok && (occ == c || p.KindAt(dest) > k) {
			continue
		}
		candidates++
		guards := p.Attackers(by, dest)
		if guards.Empty() {
			return false
		}
		if !coversSquare(p, guards, k, c, by) {
			return false
		}
	}
	return candidates > 0
}

func coversSquare(p *position.Position, guards position.SquareSet, k position.Kind, c, by chesslib.Color) bool {
	for _, g := range guards.Squares() {
		if p.IsPinned(by, g) {
			continue
		}
		gk := p.KindAt(g)
		if gk < k {
			return true
		}
		if gk == k && p.Attackers(c, g).Len() <= 1 {
			return true
		}
	}
	return false
}

// Traps lists the enemy pieces the moved piece attacks that are trapped after m.
func Traps(p *position.Position, m *chesslib.Move) []Target {
	mover := p.Turn()
	opp := position.Other(mover)
	return position.Peek(p, m, func(q *position.Position) []Target {
		var out []chesslib.Square
		for _, sq := range q.Attacks(m.S2()).Squares() {
			if q.Occupied(opp, sq) && IsTrapped(q, sq, mover) {
				out = append(out, sq)
			}
		}
		return targets(q, out)
	})
}
