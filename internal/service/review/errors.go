package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/cheese-review/internal/chess/eval"
)

var (
	ErrEngineUnavailable = errors.New("review: engine unavailable")
	ErrParse             = errors.New("review: cannot parse game")
	ErrNotFound          = errors.New("review: not found")
)

// guardedOracle tags every oracle failure with ErrEngineUnavailable.
type guardedOracle struct {
	oracle eval.Oracle
}

func (g guardedOracle) Analyze(ctx context.Context, fen string, limit eval.Limit) (eval.Analysis, error) {
	a, err := g.oracle.Analyze(ctx, fen, limit)
	if err != nil {
		return eval.Analysis{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return a, nil
}
