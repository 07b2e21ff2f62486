// Package eval holds engine scores and the plumbing that asks an engine for them.
package eval

import (
	"encoding/json"
	"fmt"

	chesslib "github.com/corentings/chess/v2"
)

// MateClamp is the centipawn magnitude a forced mate is worth inside
// loss and accuracy arithmetic. Nowhere else is a mate turned into a number.
const MateClamp = 1000

// Evaluation is an engine score seen from White's side: either a centipawn
// value or a forced mate in a number of moves won by one color.
type Evaluation struct {
	mate   bool
	cp     int
	moves  int
	winner chesslib.Color
}

// Centipawns is a material-style score; positive favors White.
func Centipawns(cp int) Evaluation { return Evaluation{cp: cp} }

// Mate is a forced mate in n moves for winner. n == 0 means the position on
// the board is already checkmate.
func Mate(n int, winner chesslib.Color) Evaluation {
	if n < 0 {
		n = -n
	}
	return Evaluation{mate: true, moves: n, winner: winner}
}

// FromRelative converts a side-to-move score, as UCI engines report it, into a
// White-relative Evaluation. A mate of 0 means the side to move is mated.
func FromRelative(turn chesslib.Color, cp int, mate int, isMate bool) Evaluation {
	if isMate {
		if mate > 0 {
			return Mate(mate, turn)
		}
		return Mate(-mate, other(turn))
	}
	if turn == chesslib.Black {
		cp = -cp
	}
	return Centipawns(cp)
}

func (e Evaluation) IsMate() bool { return e.mate }

// MateIn returns the mate distance in moves; 0 for centipawn scores.
func (e Evaluation) MateIn() int { return e.moves }

// Winner is the mating side, NoColor for centipawn scores.
func (e Evaluation) Winner() chesslib.Color {
	if !e.mate {
		return chesslib.NoColor
	}
	return e.winner
}

// CP returns the White-relative centipawns; 0 for mates.
func (e Evaluation) CP() int { return e.cp }

// MatesFor reports whether c delivers the forced mate.
func (e Evaluation) MatesFor(c chesslib.Color) bool { return e.mate && e.winner == c }

// MatedFor reports whether c is on the losing end of a forced mate.
func (e Evaluation) MatedFor(c chesslib.Color) bool { return e.mate && e.winner != c }

// Clamped is the White-relative score with mates replaced by ±MateClamp.
// Centipawn scores pass through unchanged.
func (e Evaluation) Clamped() int {
	if !e.mate {
		return e.cp
	}
	if e.winner == chesslib.White {
		return MateClamp
	}
	return -MateClamp
}

// ClampedFor is Clamped from c's point of view.
func (e Evaluation) ClampedFor(c chesslib.Color) int {
	if c == chesslib.Black {
		return -e.Clamped()
	}
	return e.Clamped()
}

// For returns centipawns from c's point of view. ok is false for mates.
func (e Evaluation) For(c chesslib.Color) (cp int, ok bool) {
	if e.mate {
		return 0, false
	}
	if c == chesslib.Black {
		return -e.cp, true
	}
	return e.cp, true
}

// Gain is how many centipawns the mover gained between two centipawn
// evaluations. ok is false when either side of the comparison is a mate.
func Gain(before, after Evaluation, mover chesslib.Color) (int, bool) {
	b, ok := before.For(mover)
	if !ok {
		return 0, false
	}
	a, ok := after.For(mover)
	if !ok {
		return 0, false
	}
	return a - b, true
}

// String renders "+0.35", "-1.20", "#3" or "#-2" (Black mates). A mate
// already on the board is "#0" whoever delivered it.
func (e Evaluation) String() string {
	if e.mate {
		if e.winner == chesslib.Black && e.moves > 0 {
			return fmt.Sprintf("#-%d", e.moves)
		}
		return fmt.Sprintf("#%d", e.moves)
	}
	if e.cp == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%+.2f", float64(e.cp)/100)
}

type wireEvaluation struct {
	CP     *int   `json:"cp,omitempty"`
	Mate   *int   `json:"mate,omitempty"`
	Winner string `json:"winner,omitempty"`
}

func (e Evaluation) MarshalJSON() ([]byte, error) {
	var w wireEvaluation
	if e.mate {
		n := e.moves
		w.Mate = &n
		w.Winner = colorCode(e.winner)
	} else {
		cp := e.cp
		w.CP = &cp
	}
	return json.Marshal(w)
}

func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var w wireEvaluation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Mate != nil:
		winner := chesslib.White
		if w.Winner == "b" {
			winner = chesslib.Black
		}
		*e = Mate(*w.Mate, winner)
	case w.CP != nil:
		*e = Centipawns(*w.CP)
	default:
		return fmt.Errorf("eval: evaluation needs cp or mate")
	}
	return nil
}

func colorCode(c chesslib.Color) string {
	if c == chesslib.Black {
		return "b"
	}
	return "w"
}

func other(c chesslib.Color) chesslib.Color {
	if c == chesslib.White {
		return chesslib.Black
	}
	return chesslib.White
}

// Equal reports whether two evaluations carry the same score.
func (e Evaluation) Equal(o Evaluation) bool {
	if e.mate != o.mate {
		return false
	}
	if e.mate {
		return e.moves == o.moves && e.winner == o.winner
	}
	return e.cp == o.cp
}
