package motif

import (
	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/position"
)

// IsPossibleTrade reports whether m captures or offers material of equal
// value. Knights and bishops count as equal.
func IsPossibleTrade(p *position.Position, m *chesslib.Move) bool {
	mover := p.Turn()
	opp := position.Other(mover)
	from := p.MovingKind(m)
	to := m.S2()

	if p.IsCapture(m) {
		if !p.IsDefended(to, opp) {
			return false
		}
		captured := capturedKind(p, m)
		return captured == from || position.MinorPair(captured, from)
	}

	defended := p.IsDefended(to, mover)
	for _, a := range p.Attackers(opp, to).Squares() {
		if !defended {
			return true
		}
		ak := p.KindAt(a)
		if ak == from && !p.IsPinned(opp, a) {
			return true
		}
		if position.MinorPair(ak, from) {
			return true
		}
	}
	return false
}

// IsSacrifice reports whether m gives up material: a capture of something
// cheaper on a square a cheaper enemy piece covers, or a quiet move onto a
// square a cheaper, unpinned enemy piece attacks. Pawn moves and
// bishop-for-knight exchanges are never sacrifices.
func IsSacrifice(p *position.Position, m *chesslib.Move) bool {
	from := p.MovingKind(m)
	if from == position.Pawn || from == position.NoKind {
		return false
	}
	mover := p.Turn()
	opp := position.Other(mover)
	to := m.S2()

	if p.IsCapture(m) {
		captured := capturedKind(p, m)
		if captured >= from || (captured == position.Knight && from == position.Bishop) {
			return false
		}
		for _, d := range p.Attackers(opp, to).Squares() {
			if p.KindAt(d) < from {
				return true
			}
		}
		return false
	}

	defended := p.IsDefended(to, mover)
	for _, a := range p.Attackers(opp, to).Squares() {
		if !defended {
			return true
		}
		ak := p.KindAt(a)
		if ak < from && !(ak == position.Knight && from == position.Bishop) && !p.IsPinned(opp, a) {
			return true
		}
	}
	return false
}
