package eval

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Prefetch analyzes every distinct fen with up to workers concurrent requests,
// leaving the answers in a's memory. The first failure cancels the rest.
func Prefetch(parent context.Context, a Analyzer, fens []string, workers int) error {
	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(max(workers, 1))

	seen := make(map[string]struct{}, len(fens))
	for _, fen := range fens {
		if _, ok := seen[fen]; ok {
			continue
		}
		seen[fen] = struct{}{}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := a.Analyze(ctx, fen)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// The group's context is always done after Wait; only the caller's counts.
	return parent.Err()
}
