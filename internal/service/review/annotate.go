package review

import (
	"context"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/motif"
	"github.com/park285/cheese-review/internal/chess/position"
)

// favorable writes the annotation for a Best, Excellent or Good move and
// returns the label, upgraded to Brilliant when the move is a sacrifice.
func (c *Classifier) favorable(ctx context.Context, p *position.Position, m *chesslib.Move, prev Mentions, label Label, n *note, said *Mentions) (Label, error) {
	trade := motif.IsPossibleTrade(p, m) && !motif.IsDiscoveredCheck(p, m)
	if trade {
		if p.IsCapture(m) {
			n.add("review.favorable.trade_capture", nil)
		} else {
			n.add("review.favorable.trade_offer", nil)
		}
		said.Trade = true
	}

	if defended := motif.DefendsHanging(p, m); len(defended) > 0 && !trade {
		n.add("review.favorable.defends", map[string]any{
			"Pieces":  pieceList(defended),
			"Squares": squareList(defended),
		})
	}

	if forked := motif.CreatesFork(p, m); len(forked) >= 2 {
		n.add("review.favorable.fork", map[string]any{"Pieces": pieceList(forked)})
		said.Fork = true
	} else if t, ok := motif.AttackedPiece(p, m); ok {
		n.add("review.favorable.attacks", map[string]any{"Piece": t.Kind.String()})
	}

	if motif.BlocksCheck(p, m) {
		n.add("review.favorable.blocks_check", nil)
	}
	if k := motif.Developing(p, m); k != position.NoKind {
		n.add("review.favorable.develops", map[string]any{"Piece": k.String()})
	}
	if motif.IsFianchetto(p, m) {
		n.add("review.favorable.fianchetto", nil)
	}
	if _, ok := motif.PinsOpponent(p, m); ok {
		n.add("review.favorable.pins", nil)
	}
	if motif.RookToOpenFile(p, m) {
		n.add("review.favorable.rook_open_file", nil)
	}
	if motif.IsEndgame(p) && motif.KingOffBackRank(p, m) {
		n.add("review.favorable.king_off_backrank", nil)
	}

	tempo, err := motif.WinsTempo(ctx, c.analyzer, p, m)
	if err != nil {
		return label, err
	}
	if tempo {
		n.add("review.favorable.tempo", nil)
	}

	if !prev.Trade {
		if motif.CapturesHigherPiece(p, m) {
			n.add("review.favorable.captures_higher", nil)
			said.HigherValueCapture = true
		}
		if !prev.HigherValueCapture && motif.CapturesFreePiece(p, m) {
			n.add("review.favorable.captures_free", map[string]any{"Piece": p.KindAt(m.S2()).String()})
		}
	}

	if won := motif.DiscoveredCheckAttacks(p, m); len(won) > 0 {
		n.add("review.favorable.discovered_check", map[string]any{"Pieces": pieceList(won)})
	}
	if trapped := motif.Traps(p, m); len(trapped) > 0 {
		n.add("review.favorable.traps", map[string]any{"Pieces": pieceList(trapped)})
	}

	if motif.IsSacrifice(p, m) {
		label = Brilliant
		n.add("review.favorable.sacrifice", map[string]any{"Piece": p.MovingKind(m).String()})
	}

	threat, err := motif.ThreatensMate(ctx, c.analyzer, p, m)
	if err != nil {
		return label, err
	}
	if threat {
		n.add("review.favorable.threatens_mate", nil)
	}
	return label, nil
}

// unfavorable writes the annotation for an Inaccuracy, Mistake or Blunder:
// what the move gave away, what best would have done instead, and what the
// opponent can now do.
func (c *Classifier) unfavorable(ctx context.Context, p *position.Position, m, best *chesslib.Move, prev Mentions, n *note) error {
	trade := motif.IsPossibleTrade(p, m)

	var hanging []motif.Target
	if !(prev.Fork && p.IsCheck()) {
		hanging = motif.HangingAfter(p, m)
		if trade {
			hanging = withoutSquare(hanging, m.S2())
		}
		if len(hanging) > 0 {
			n.add("review.unfavorable.hanging", map[string]any{
				"Pieces":  pieceList(hanging),
				"Squares": squareList(hanging),
			})
		}
	}

	afterCheck := position.Peek(p, m, func(q *position.Position) bool { return q.IsCheck() })
	lower := position.Peek(p, m, motif.CapturableByLower)
	for _, t := range hanging {
		lower = withoutSquare(lower, t.Square)
	}
	if len(lower) > 0 && !afterCheck && !trade {
		n.add("review.unfavorable.capturable_by_lower", map[string]any{"Pieces": pieceList(lower)})
	}

	reply, err := position.PeekErr(p, m, func(q *position.Position) (*chesslib.Move, error) {
		return c.reply(ctx, q)
	})
	if err != nil {
		return err
	}

	if reply != nil {
		forks := position.Peek(p, m, func(q *position.Position) []motif.Target {
			return motif.CreatesFork(q, reply)
		})
		if len(forks) >= 2 {
			n.add("review.unfavorable.allows_fork", nil)
		}
	}

	missed := !position.SameMove(m, best)
	bestSAN := p.SAN(best)
	if missed && len(motif.CreatesFork(p, best)) >= 2 {
		n.add("review.unfavorable.missed_fork", map[string]any{"Move": bestSAN})
	}
	if _, ok := motif.PinsOpponent(p, best); missed && ok {
		n.add("review.unfavorable.missed_pin", map[string]any{"Move": bestSAN})
	}
	if missed && motif.CapturesFreePiece(p, best) {
		n.add("review.unfavorable.missed_free_capture", map[string]any{"Piece": p.KindAt(best.S2()).String()})
	}

	threat, err := motif.ThreatensMate(ctx, c.analyzer, p, best)
	if err != nil {
		return err
	}
	if threat {
		n.add("review.unfavorable.missed_mate_threat", nil)
	}
	if t, ok := motif.AttackedPiece(p, best); ok {
		n.add("review.unfavorable.missed_attack", map[string]any{"Piece": t.Kind.String(), "Move": bestSAN})
	}

	var replyDisc []motif.Target
	if reply != nil {
		attacks := position.Peek(p, m, func(q *position.Position) bool {
			_, ok := motif.AttackedPiece(q, reply)
			return ok
		})
		if attacks {
			n.add("review.unfavorable.allows_attack", nil)
		}
		replyDisc = position.Peek(p, m, func(q *position.Position) []motif.Target {
			return motif.DiscoveredCheckAttacks(q, reply)
		})
		if len(replyDisc) > 0 {
			n.add("review.unfavorable.allows_discovered_check", map[string]any{"Pieces": pieceList(replyDisc)})
		}
	}
	if won := motif.DiscoveredCheckAttacks(p, best); len(won) > 0 {
		n.add("review.unfavorable.missed_discovered_check", map[string]any{"Pieces": pieceList(won)})
	}

	if reply != nil && len(replyDisc) == 0 {
		trapped := position.Peek(p, m, func(q *position.Position) []motif.Target {
			return motif.Traps(q, reply)
		})
		if len(trapped) > 0 {
			n.add("review.unfavorable.allows_trap", map[string]any{"Pieces": pieceList(trapped)})
		}
	}
	if trapped := motif.Traps(p, best); len(trapped) > 0 {
		n.add("review.unfavorable.missed_trap", map[string]any{"Pieces": pieceList(trapped)})
	}

	if reply == nil {
		return nil
	}
	tempo, err := position.PeekErr(p, m, func(q *position.Position) (bool, error) {
		return motif.WinsTempo(ctx, c.analyzer, q, reply)
	})
	if err != nil {
		return err
	}
	if tempo {
		n.add("review.unfavorable.opponent_tempo", nil)
	}
	replySAN := position.Peek(p, m, func(q *position.Position) string { return q.SAN(reply) })
	n.add("review.unfavorable.opponent_reply", map[string]any{"Move": replySAN})
	return nil
}

func withoutSquare(ts []motif.Target, sq chesslib.Square) []motif.Target {
	out := ts[:0:0]
	for _, t := range ts {
		if t.Square != sq {
			out = append(out, t)
		}
	}
	return out
}
