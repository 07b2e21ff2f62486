package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	chesslib "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	corechess "github.com/park285/cheese-review/internal/chess"
	"github.com/park285/cheese-review/internal/chess/accuracy"
	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/motif"
	"github.com/park285/cheese-review/internal/chess/openingbook"
	"github.com/park285/cheese-review/internal/chess/position"
	"github.com/park285/cheese-review/internal/domain"
	"github.com/park285/cheese-review/internal/msgcat"
)

const (
	defaultPrefetchWorkers = 4
	maxRecent              = 50
)

type Config struct {
	DefaultPreset   string
	// Override replaces the default preset's limit when any field is set.
	Override        eval.Limit
	PrefetchWorkers int
}

type Service struct {
	oracle   eval.Oracle
	book     *openingbook.Book
	cat      *msgcat.Catalog
	repo     Repository
	store    eval.Store
	notifier Notifier
	cfg      Config
	preset   corechess.AnalysisPreset
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithEvalStore makes every review consult s before the engine.
func WithEvalStore(s eval.Store) Option {
	return func(svc *Service) { svc.store = s }
}

func WithNotifier(n Notifier) Option {
	return func(svc *Service) {
		if n != nil {
			svc.notifier = n
		}
	}
}

func NewService(oracle eval.Oracle, book *openingbook.Book, cat *msgcat.Catalog, repo Repository, cfg Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if oracle == nil {
		return nil, fmt.Errorf("review oracle is required")
	}
	if cat == nil {
		return nil, fmt.Errorf("message catalog is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("review repository is required")
	}
	preset, err := corechess.GetPreset(cfg.DefaultPreset)
	if err != nil {
		return nil, fmt.Errorf("default preset validation failed: %w", err)
	}
	preset = preset.WithOverrides(cfg.Override)
	if err := preset.Limit.Validate(); err != nil {
		return nil, fmt.Errorf("default limit: %w", err)
	}
	if cfg.PrefetchWorkers <= 0 {
		cfg.PrefetchWorkers = defaultPrefetchWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		oracle:   guardedOracle{oracle: oracle},
		book:     book,
		cat:      cat,
		repo:     repo,
		notifier: nopNotifier{},
		cfg:      cfg,
		preset:   preset,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Limit resolves a preset name plus explicit overrides into a search limit.
// An empty name selects the service default.
func (s *Service) Limit(presetName string, override eval.Limit) (eval.Limit, error) {
	p := s.preset
	if strings.TrimSpace(presetName) != "" {
		var err error
		if p, err = corechess.GetPreset(presetName); err != nil {
			return eval.Limit{}, err
		}
	}
	return p.WithOverrides(override).Limit, nil
}

// ReviewPGN parses the first game in r and reviews it.
func (s *Service) ReviewPGN(ctx context.Context, r io.Reader, limit eval.Limit) (*GameReview, error) {
	g, err := ParsePGN(r)
	if err != nil {
		return nil, err
	}
	return s.ReviewGame(ctx, g, limit)
}

// ReviewGame returns the stored review of g under limit, or reviews and
// stores it.
func (s *Service) ReviewGame(ctx context.Context, g *Game, limit eval.Limit) (*GameReview, error) {
	if limit == (eval.Limit{}) {
		limit = s.preset.Limit
	}
	key := g.Key(limit)

	rec, err := s.repo.FindByKey(ctx, key)
	switch {
	case err == nil:
		cached, derr := decodeRecord(rec)
		if derr == nil {
			s.logger.Debug("review served from repository", zap.String("id", rec.ID))
			return cached, nil
		}
		s.logger.Warn("stored review unreadable", zap.String("id", rec.ID), zap.Error(derr))
	case !errors.Is(err, ErrNotFound):
		s.logger.Warn("review lookup failed", zap.String("key", key), zap.Error(err))
	}

	out, err := s.Review(ctx, g, limit)
	if err != nil {
		return nil, err
	}
	out.ID = uuid.NewString()

	rec, err = encodeRecord(out)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Save(ctx, rec)
	if err != nil {
		s.logger.Warn("review save failed", zap.String("key", key), zap.Error(err))
	} else {
		out.ID = id
	}
	s.notifier.Finished(ctx, out)
	return out, nil
}

// Get loads a stored review by id.
func (s *Service) Get(ctx context.Context, id string) (*GameReview, error) {
	rec, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return decodeRecord(rec)
}

// Recent lists the newest stored reviews, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*domain.ReviewRecord, error) {
	if limit <= 0 || limit > maxRecent {
		limit = 10
	}
	return s.repo.Recent(ctx, limit)
}

// Review annotates every ply of g. Engine failures abort the review with
// ErrEngineUnavailable; nothing partial is returned.
func (s *Service) Review(ctx context.Context, g *Game, limit eval.Limit) (*GameReview, error) {
	if g == nil || len(g.Moves) == 0 {
		return nil, fmt.Errorf("%w: no moves", ErrParse)
	}
	if err := limit.Validate(); err != nil {
		return nil, err
	}
	start, err := position.FromFEN(g.StartFEN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	fens, err := playableFENs(start, g.Moves)
	if err != nil {
		return nil, err
	}

	begun := s.now()
	memo := eval.NewMemo(s.oracle, limit, eval.WithStore(s.store), eval.WithLogger(s.logger))
	if err := eval.Prefetch(ctx, memo, fens, s.cfg.PrefetchWorkers); err != nil {
		return nil, err
	}

	live := start.Snapshot()
	startAn, err := eval.Evaluate(ctx, memo, live)
	if err != nil {
		return nil, err
	}

	fromStart := g.FromStart()
	cls := NewClassifier(memo, s.book, s.cat, s.logger)
	key := g.Key(limit)
	out := &GameReview{
		Key:       key,
		StartFEN:  g.StartFEN,
		Tags:      g.Tags,
		Limit:     limit,
		Moves:     make([]MoveReview, 0, len(g.Moves)),
		CreatedAt: begun,
	}
	if fromStart {
		out.Opening, _ = s.book.Name(g.Moves)
	}

	prev := Context{Score: startAn.Score, HasScore: true}
	whiteFirst := live.Turn() == chesslib.White
	var (
		whiteLoss, blackLoss []int
		scores               = make([]int, 0, len(g.Moves))
		whiteLabels          = map[Label]int{}
		blackLabels          = map[Label]int{}
	)

	for i, m := range g.Moves {
		var bookMoves []*chesslib.Move
		if fromStart {
			bookMoves = g.Moves
		}
		v, err := cls.Classify(ctx, Input{Pos: live, Move: m, Ply: i, Moves: bookMoves, Prev: prev})
		if err != nil {
			return nil, fmt.Errorf("review ply %d: %w", i+1, err)
		}

		mover := live.Turn()
		mr := MoveReview{
			Ply:        i + 1,
			MoveNumber: fullMove(live.FEN()),
			Side:       strings.ToLower(sideName(mover)),
			SAN:        live.SAN(m),
			UCI:        position.UCI(m),
			Eval:       v.After,
			Class:      v.Classification,
			Text:       v.Text,
			BestSAN:    v.BestSAN,
			BestUCI:    position.UCI(v.Best),
		}
		if v.Classification.Label == Book {
			o := v.Opening
			mr.Opening = &o
		}

		if l := v.Classification.Label; l != Book && l != Best {
			bv, err := cls.Classify(ctx, Input{Pos: live, Move: v.Best, Ply: i, Prev: prev})
			if err != nil {
				return nil, fmt.Errorf("review best move at ply %d: %w", i+1, err)
			}
			bc := bv.Classification
			mr.BestClass = &bc
			mr.BestText = bv.Text
		}

		bestAfter := v.After
		if !position.SameMove(m, v.Best) {
			an, err := position.PeekErr(live, v.Best, func(q *position.Position) (eval.Analysis, error) {
				return eval.Evaluate(ctx, memo, q)
			})
			if err != nil {
				return nil, fmt.Errorf("review best line at ply %d: %w", i+1, err)
			}
			bestAfter = an.Score
		}
		mr.CPL = centipawnLoss(bestAfter, v.After)

		live.Push(m)
		mr.FEN = live.FEN()
		mr.Metrics = motif.Measure(live)

		if mover == chesslib.White {
			whiteLoss = append(whiteLoss, mr.CPL)
			whiteLabels[mr.Class.Label]++
		} else {
			blackLoss = append(blackLoss, mr.CPL)
			blackLabels[mr.Class.Label]++
		}
		scores = append(scores, v.After.Clamped())
		out.Moves = append(out.Moves, mr)
		prev = v.Next()

		s.notifier.Progress(ctx, Progress{
			Key:            key,
			Ply:            mr.Ply,
			Total:          len(g.Moves),
			SAN:            mr.SAN,
			Classification: mr.Class,
		})
	}

	startScore := 0
	if !fromStart {
		startScore = startAn.Score.Clamped()
	}
	acc := accuracy.GameFrom(startScore, whiteFirst, scores)
	full := len(g.Moves) / 2
	out.White = sideStats(acc.White, whiteLoss, whiteLabels, full)
	out.Black = sideStats(acc.Black, blackLoss, blackLabels, full)

	hits, misses := memo.Stats()
	s.logger.Info("game reviewed",
		zap.String("key", key),
		zap.Int("plies", len(g.Moves)),
		zap.String("limit", limit.Key()),
		zap.Int("memo_hits", hits),
		zap.Int("memo_misses", misses),
		zap.Duration("elapsed", s.now().Sub(begun)))
	return out, nil
}

func sideStats(acc float64, losses []int, labels map[Label]int, fullMoves int) SideStats {
	acpl := accuracy.AverageLoss(losses)
	return SideStats{
		Accuracy: acc,
		ACPL:     acpl,
		Elo:      accuracy.EstimateElo(acpl, fullMoves),
		Moves:    len(losses),
		Labels:   labels,
	}
}

// playableFENs replays moves from start and returns every position that has
// a legal move, the start included. An illegal move is a parse error.
func playableFENs(start *position.Position, moves []*chesslib.Move) ([]string, error) {
	p := start.Snapshot()
	fens := make([]string, 0, len(moves)+1)
	for i, m := range moves {
		if len(p.LegalMoves()) > 0 {
			fens = append(fens, p.FEN())
		}
		if _, ok := p.Legal(m); !ok {
			return nil, fmt.Errorf("%w: illegal move %d %s", ErrParse, i+1, position.UCI(m))
		}
		p.Push(m)
	}
	if len(p.LegalMoves()) > 0 {
		fens = append(fens, p.FEN())
	}
	return fens, nil
}

func fullMove(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func encodeRecord(r *GameReview) (*domain.ReviewRecord, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal review: %w", err)
	}
	uci := make([]string, len(r.Moves))
	for i, m := range r.Moves {
		uci[i] = m.UCI
	}
	return &domain.ReviewRecord{
		ID:            r.ID,
		ReviewKey:     r.Key,
		StartFEN:      r.StartFEN,
		MovesUCI:      uci,
		Limit:         r.Limit.Key(),
		Opening:       r.Opening.String(),
		White:         r.Tags["White"],
		Black:         r.Tags["Black"],
		WhiteAccuracy: r.White.Accuracy,
		BlackAccuracy: r.Black.Accuracy,
		Payload:       payload,
		CreatedAt:     r.CreatedAt,
	}, nil
}

func decodeRecord(rec *domain.ReviewRecord) (*GameReview, error) {
	var r GameReview
	if err := json.Unmarshal(rec.Payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal review %s: %w", rec.ID, err)
	}
	r.ID = rec.ID
	return &r, nil
}
