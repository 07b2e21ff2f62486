package motif

import (
	"context"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/position"
)

// ThreatensMate reports whether m, if the opponent were to pass, leaves the
// mover with a forced mate. Checking moves are not threats.
func ThreatensMate(ctx context.Context, a eval.Analyzer, p *position.Position, m *chesslib.Move) (bool, error) {
	mover := p.Turn()
	return position.PeekErr(p, m, func(q *position.Position) (bool, error) {
		if q.IsCheck() {
			return false, nil
		}
		return position.PeekNullErr(q, func(r *position.Position) (bool, error) {
			an, err := eval.Evaluate(ctx, a, r)
			if err != nil {
				return false, err
			}
			return an.Score.MatesFor(mover) && an.Score.MateIn() > 0, nil
		})
	})
}

// WinsTempo reports whether m attacks something and also improves the
// mover's evaluation. Mate scores never count as a tempo gain.
func WinsTempo(ctx context.Context, a eval.Analyzer, p *position.Position, m *chesslib.Move) (bool, error) {
	if _, ok := AttackedPiece(p, m); !ok {
		return false, nil
	}
	mover := p.Turn()
	before, err := eval.Evaluate(ctx, a, p)
	if err != nil {
		return false, err
	}
	after, err := position.PeekErr(p, m, func(q *position.Position) (eval.Analysis, error) {
		return eval.Evaluate(ctx, a, q)
	})
	if err != nil {
		return false, err
	}
	gain, ok := eval.Gain(before.Score, after.Score, mover)
	return ok && gain > 0, nil
}
