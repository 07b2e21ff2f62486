// Package accuracy turns an evaluation trace into per-side accuracy, average
// centipawn loss and a rough rating estimate.
package accuracy

import "math"

// WinPercent maps a White-relative centipawn score to White's winning chances
// on a 0..100 scale.
func WinPercent(cp int) float64 {
	return 50 + 50*(2/(1+math.Exp(-0.00368208*float64(cp)))-1)
}

// Move scores one move from the drop in the mover's win percentage. A move
// that does not lose winning chances is perfect.
func Move(delta float64) float64 {
	if delta <= 0 {
		return 100
	}
	a := 103.1668*math.Exp(-0.04354*delta) - 3.1669
	if a < 0 {
		return 0
	}
	if a > 100 {
		return 100
	}
	return a
}

// Sides holds one value per color.
type Sides struct {
	White float64 `json:"white"`
	Black float64 `json:"black"`
}

// Game computes per-side accuracy from White-relative scores, one per ply,
// taken after each move. The trace is assumed to start from an even position
// with White to move. A side without moves scores 100.
func Game(scores []int) Sides {
	return GameFrom(0, true, scores)
}

// GameFrom is Game for a trace starting at White-relative score start, with
// whiteFirst telling which side made the first scored move.
func GameFrom(start int, whiteFirst bool, scores []int) Sides {
	prev := WinPercent(start)
	offset := 0
	if !whiteFirst {
		offset = 1
	}
	var white, black []float64
	for i, s := range scores {
		cur := WinPercent(s)
		if (i+offset)%2 == 0 {
			white = append(white, Move(prev-cur))
		} else {
			black = append(black, Move((100-prev)-(100-cur)))
		}
		prev = cur
	}
	return Sides{White: meanOr(white, 100), Black: meanOr(black, 100)}
}

// AverageLoss returns the mean of losses, 0 for an empty list.
func AverageLoss(losses []int) float64 {
	if len(losses) == 0 {
		return 0
	}
	sum := 0
	for _, l := range losses {
		sum += l
	}
	return float64(sum) / float64(len(losses))
}

// EstimateElo guesses a rating from average centipawn loss acpl over moves
// full moves: 100 above an ACPL of 500, otherwise
// ceil(3000·e^(−0.01·acpl)·sqrt(moves/50) / 100)·100.
func EstimateElo(acpl float64, moves int) int {
	if acpl > 500 {
		return 100
	}
	est := 3000 * math.Exp(-0.01*acpl) * math.Sqrt(float64(moves)/50)
	return int(math.Ceil(est/100)) * 100
}

func meanOr(xs []float64, empty float64) float64 {
	if len(xs) == 0 {
		return empty
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
