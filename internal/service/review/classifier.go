package review

import (
	"context"

	chesslib "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/motif"
	"github.com/park285/cheese-review/internal/chess/openingbook"
	"github.com/park285/cheese-review/internal/chess/position"
	"github.com/park285/cheese-review/internal/msgcat"
)

// Mentions records which facts a ply's annotation already stated, so the
// next ply does not repeat what they imply.
type Mentions struct {
	Trade              bool `json:"trade,omitempty"`
	HigherValueCapture bool `json:"higher_value_capture,omitempty"`
	Fork               bool `json:"fork,omitempty"`
}

// Context is what one ply hands to the next.
type Context struct {
	Mentions Mentions
	// Score is the evaluation of the position the next move is played from.
	// When HasScore is false the classifier asks the analyzer instead.
	Score    eval.Evaluation
	HasScore bool
}

// Input describes one move to classify. Pos is the position before Move and
// is returned unchanged.
type Input struct {
	Pos  *position.Position
	Move *chesslib.Move
	Ply  int
	// Moves is the game's move list, used for book detection. Leave it nil
	// to skip the book check.
	Moves []*chesslib.Move
	Prev  Context
}

// Verdict is the classifier's output for one move.
type Verdict struct {
	Classification Classification
	Text           string
	Mentions       Mentions
	Opening        openingbook.Opening
	Best           *chesslib.Move
	BestSAN        string
	Before         eval.Evaluation
	After          eval.Evaluation
}

// Next returns the context the following ply should receive.
func (v Verdict) Next() Context {
	return Context{Mentions: v.Mentions, Score: v.After, HasScore: true}
}

type Classifier struct {
	analyzer eval.Analyzer
	book     *openingbook.Book
	cat      *msgcat.Catalog
	logger   *zap.Logger
}

// NewClassifier builds a classifier. book may be nil to disable book labels.
func NewClassifier(a eval.Analyzer, book *openingbook.Book, cat *msgcat.Catalog, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{analyzer: a, book: book, cat: cat, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, in Input) (Verdict, error) {
	p, m := in.Pos, in.Move
	mover := p.Turn()

	best, beforeAn, err := eval.Best(ctx, c.analyzer, p)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Best: best, BestSAN: p.SAN(best), Before: beforeAn.Score}
	if in.Prev.HasScore {
		v.Before = in.Prev.Score
	}
	top := position.SameMove(m, best)
	n := &note{cat: c.cat}

	afterAn, err := position.PeekErr(p, m, func(q *position.Position) (eval.Analysis, error) {
		return eval.Evaluate(ctx, c.analyzer, q)
	})
	if err != nil {
		return Verdict{}, err
	}
	v.After = afterAn.Score
	san := p.SAN(m)

	if in.Moves != nil {
		if o, ok := c.book.BookMove(in.Moves, in.Ply, p.FEN()); ok {
			v.Classification = Classification{Label: Book}
			v.Opening = o
			n.add("review.book", map[string]any{"Opening": o.Name})
			v.Text = n.String()
			return v, n.err
		}
	}

	switch {
	case v.After.MatesFor(mover):
		c.mating(p, m, san, top, v.Before, v.After, n, &v.Classification)
	case v.After.MatedFor(mover):
		err = c.mated(ctx, p, m, san, top, v.Before, v.After, n, &v.Classification)
	case v.Before.MatesFor(mover):
		v.Classification = Classification{Label: LostMate}
		var reply string
		reply, err = c.replySAN(ctx, p, m)
		if err == nil {
			n.add("review.mate.lost_mate", map[string]any{"Reply": reply})
		}
	default:
		gain, ok := eval.Gain(v.Before, v.After, mover)
		if !ok {
			// The opponent's mate vanished after this move.
			gain = v.After.ClampedFor(mover) - v.Before.ClampedFor(mover)
		}
		label := bandFor(gain)
		if top {
			label = Best
		}
		if label.Favorable() {
			label, err = c.favorable(ctx, p, m, in.Prev.Mentions, label, n, &v.Mentions)
		} else {
			err = c.unfavorable(ctx, p, m, best, in.Prev.Mentions, n)
		}
		v.Classification = Classification{Label: label}
	}
	if err != nil {
		return Verdict{}, err
	}
	if n.err != nil {
		return Verdict{}, n.err
	}
	v.Text = n.String()

	c.logger.Debug("move classified",
		zap.Int("ply", in.Ply),
		zap.String("san", san),
		zap.String("label", v.Classification.String()),
		zap.String("before", v.Before.String()),
		zap.String("after", v.After.String()))
	return v, nil
}

// mating handles a move after which the mover has a forced mate.
func (c *Classifier) mating(p *position.Position, m *chesslib.Move, san string, top bool, before, after eval.Evaluation, n *note, out *Classification) {
	mover := p.Turn()
	k := after.MateIn()
	data := map[string]any{"Move": san, "Side": sideName(mover), "N": k}

	switch {
	case k == 0:
		*out = Classification{Label: Excellent}
		if top {
			out.Label = Best
		}
		n.add("review.mate.checkmate", nil)
	case motif.IsSacrifice(p, m):
		*out = Classification{Label: Brilliant}
		data["Piece"] = p.MovingKind(m).String()
		n.add("review.mate.sacrifice", data)
	case before.MatesFor(mover) && k < before.MateIn():
		*out = Classification{Label: ContinuesMateIn, N: k}
		if top {
			*out = Classification{Label: Best}
		}
		n.add("review.mate.continues", data)
	case before.MatesFor(mover):
		*out = Classification{Label: Good}
		if top {
			out.Label = Best
		}
		n.add("review.mate.slower", data)
	default:
		*out = Classification{Label: MatesIn, N: k}
		n.add("review.mate.begins", data)
	}
}

// mated handles a move after which the opponent has a forced mate.
func (c *Classifier) mated(ctx context.Context, p *position.Position, m *chesslib.Move, san string, top bool, before, after eval.Evaluation, n *note, out *Classification) error {
	mover := p.Turn()
	k := after.MateIn()
	data := map[string]any{"Move": san, "Side": sideName(mover), "N": k}

	if before.MatedFor(mover) {
		*out = Classification{Label: GetsMatedIn, N: k}
		if top {
			*out = Classification{Label: Best}
		}
		n.add("review.mate.still_mated", data)
		return nil
	}

	reply, err := c.replySAN(ctx, p, m)
	if err != nil {
		return err
	}
	*out = Classification{Label: GetsMatedIn, N: k}
	data["Reply"] = reply
	n.add("review.mate.allows_mate", data)
	return nil
}

// replySAN is the opponent's best answer to m, in SAN.
func (c *Classifier) replySAN(ctx context.Context, p *position.Position, m *chesslib.Move) (string, error) {
	return position.PeekErr(p, m, func(q *position.Position) (string, error) {
		reply, err := c.reply(ctx, q)
		if err != nil || reply == nil {
			return "", err
		}
		return q.SAN(reply), nil
	})
}

// reply is the side to move's best move in q, or nil when it has none.
func (c *Classifier) reply(ctx context.Context, q *position.Position) (*chesslib.Move, error) {
	if len(q.LegalMoves()) == 0 {
		return nil, nil
	}
	reply, _, err := eval.Best(ctx, c.analyzer, q)
	return reply, err
}
