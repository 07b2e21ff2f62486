package reviewpresenter

import (
	"time"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/domain"
	"github.com/park285/cheese-review/internal/service/review"
	"github.com/park285/cheese-review/pkg/reviewdto"
)

func ToDTOReview(r *review.GameReview) *reviewdto.Review {
	if r == nil {
		return nil
	}
	out := &reviewdto.Review{
		ID:        r.ID,
		StartFEN:  r.StartFEN,
		Tags:      copyTags(r.Tags),
		Opening:   r.Opening.String(),
		Limit:     r.Limit.Key(),
		Moves:     make([]reviewdto.Move, 0, len(r.Moves)),
		White:     toDTOSide(r.White),
		Black:     toDTOSide(r.Black),
		CreatedAt: r.CreatedAt,
	}
	for _, m := range r.Moves {
		out.Moves = append(out.Moves, toDTOMove(m))
	}
	return out
}

func toDTOMove(m review.MoveReview) reviewdto.Move {
	mv := reviewdto.Move{
		Ply:        m.Ply,
		MoveNumber: m.MoveNumber,
		Side:       m.Side,
		SAN:        m.SAN,
		UCI:        m.UCI,
		FEN:        m.FEN,
		Eval:       m.Eval.String(),
		EvalCP:     m.Eval.Clamped(),
		Label:      m.Class.Label.String(),
		NAG:        m.Class.Label.NAG(),
		Text:       m.Text,
		BestSAN:    m.BestSAN,
		BestUCI:    m.BestUCI,
		BestText:   m.BestText,
		CPL:        m.CPL,
	}
	if m.Class.HasMateDistance() {
		mv.MateIn = m.Class.N
	}
	if m.Opening != nil {
		mv.Opening = m.Opening.String()
	}
	if m.BestClass != nil {
		mv.BestLabel = m.BestClass.String()
	}
	return mv
}

func toDTOSide(s review.SideStats) reviewdto.Side {
	out := reviewdto.Side{
		Accuracy: s.Accuracy,
		ACPL:     s.ACPL,
		Elo:      s.Elo,
		Moves:    s.Moves,
	}
	if len(s.Labels) > 0 {
		out.Labels = make(map[string]int, len(s.Labels))
		for l, n := range s.Labels {
			out.Labels[l.String()] = n
		}
	}
	return out
}

func ToDTOSummaries(recs []*domain.ReviewRecord) []reviewdto.ReviewSummary {
	out := make([]reviewdto.ReviewSummary, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		out = append(out, reviewdto.ReviewSummary{
			ID:            rec.ID,
			White:         rec.White,
			Black:         rec.Black,
			Opening:       rec.Opening,
			WhiteAccuracy: rec.WhiteAccuracy,
			BlackAccuracy: rec.BlackAccuracy,
			Plies:         len(rec.MovesUCI),
			CreatedAt:     rec.CreatedAt,
		})
	}
	return out
}

// LimitFromRequest returns the explicit search bounds of req; zero fields
// leave the preset in charge.
func LimitFromRequest(req reviewdto.ReviewRequest) eval.Limit {
	return eval.Limit{
		Depth:    req.Depth,
		MoveTime: time.Duration(req.MoveTimeMS) * time.Millisecond,
		Nodes:    req.Nodes,
	}
}

func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
