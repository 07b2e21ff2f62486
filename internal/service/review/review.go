package review

import (
	"time"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/motif"
	"github.com/park285/cheese-review/internal/chess/openingbook"
)

// MoveReview is the review of one ply.
type MoveReview struct {
	Ply        int                  `json:"ply"`
	MoveNumber int                  `json:"move_number"`
	Side       string               `json:"side"`
	SAN        string               `json:"san"`
	UCI        string               `json:"uci"`
	FEN        string               `json:"fen"`
	Eval       eval.Evaluation      `json:"eval"`
	Class      Classification       `json:"classification"`
	Text       string               `json:"text"`
	Opening    *openingbook.Opening `json:"opening,omitempty"`
	BestSAN    string               `json:"best_san"`
	BestUCI    string               `json:"best_uci"`
	BestClass  *Classification      `json:"best_classification,omitempty"`
	BestText   string               `json:"best_text,omitempty"`
	CPL        int                  `json:"cpl"`
	Metrics    motif.Metrics        `json:"metrics"`
}

// SideStats aggregates one color's moves.
type SideStats struct {
	Accuracy float64       `json:"accuracy"`
	ACPL     float64       `json:"acpl"`
	Elo      int           `json:"elo"`
	Moves    int           `json:"moves"`
	Labels   map[Label]int `json:"labels,omitempty"`
}

// GameReview is a finished review. It is not modified after Review returns.
type GameReview struct {
	ID        string              `json:"id,omitempty"`
	Key       string              `json:"key,omitempty"`
	StartFEN  string              `json:"start_fen"`
	Tags      map[string]string   `json:"tags,omitempty"`
	Limit     eval.Limit          `json:"limit"`
	Opening   openingbook.Opening `json:"opening"`
	Moves     []MoveReview        `json:"moves"`
	White     SideStats           `json:"white"`
	Black     SideStats           `json:"black"`
	CreatedAt time.Time           `json:"created_at"`
}

// Trace is the White-relative evaluation after every ply.
func (r *GameReview) Trace() []eval.Evaluation {
	out := make([]eval.Evaluation, len(r.Moves))
	for i, m := range r.Moves {
		out[i] = m.Eval
	}
	return out
}
