package review

import "github.com/park285/cheese-review/internal/chess/eval"

// centipawnLoss is the gap between the position the best move reaches and
// the one the played move reaches. Centipawns are compared raw; a mate
// counts as ±eval.MateClamp.
func centipawnLoss(best, played eval.Evaluation) int {
	d := best.Clamped() - played.Clamped()
	if d < 0 {
		return -d
	}
	return d
}
