package eval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/chess/position"
)

// ErrNoBestMove is returned when the engine answers a playable position
// without a principal variation.
var ErrNoBestMove = errors.New("eval: engine returned no best move")

// Analysis is one engine answer for one position.
type Analysis struct {
	Score Evaluation `json:"score"`
	PV    []string   `json:"pv,omitempty"`
	Depth int        `json:"depth,omitempty"`
}

// BestMove returns the first move of the principal variation in UCI form.
func (a Analysis) BestMove() string {
	if len(a.PV) == 0 {
		return ""
	}
	return a.PV[0]
}

// Oracle is the external evaluator. Repeated calls for the same position and
// limit must not change anything the next call sees.
type Oracle interface {
	Analyze(ctx context.Context, fen string, limit Limit) (Analysis, error)
}

// Analyzer is an Oracle with the search limit already chosen.
type Analyzer interface {
	Analyze(ctx context.Context, fen string) (Analysis, error)
}

// Store persists analyses between reviews.
type Store interface {
	Load(ctx context.Context, key string) (Analysis, bool, error)
	Save(ctx context.Context, key string, a Analysis) error
}

// CacheKey names the analysis of fen under limit.
func CacheKey(limit Limit, fen string) string {
	return limit.Key() + "|" + fen
}

// Memo is an Analyzer that asks the oracle at most once per position for the
// lifetime of one review. A Store, when set, is consulted before the oracle.
type Memo struct {
	oracle Oracle
	limit  Limit
	store  Store
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]Analysis
	hits    int
	misses  int
}

// MemoOption configures a Memo.
type MemoOption func(*Memo)

func WithStore(s Store) MemoOption {
	return func(m *Memo) { m.store = s }
}

func WithLogger(l *zap.Logger) MemoOption {
	return func(m *Memo) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewMemo(oracle Oracle, limit Limit, opts ...MemoOption) *Memo {
	m := &Memo{
		oracle:  oracle,
		limit:   limit,
		logger:  zap.NewNop(),
		entries: make(map[string]Analysis),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memo) Limit() Limit { return m.limit }

func (m *Memo) Analyze(ctx context.Context, fen string) (Analysis, error) {
	key := CacheKey(m.limit, fen)

	m.mu.Lock()
	if a, ok := m.entries[key]; ok {
		m.hits++
		m.mu.Unlock()
		return a, nil
	}
	m.misses++
	m.mu.Unlock()

	if m.store != nil {
		a, ok, err := m.store.Load(ctx, key)
		if err != nil {
			m.logger.Warn("eval_store_load_failed", zap.String("fen", fen), zap.Error(err))
		} else if ok {
			m.remember(key, a)
			return a, nil
		}
	}

	a, err := m.oracle.Analyze(ctx, fen, m.limit)
	if err != nil {
		return Analysis{}, err
	}
	m.remember(key, a)
	if m.store != nil {
		if err := m.store.Save(ctx, key, a); err != nil {
			m.logger.Warn("eval_store_save_failed", zap.String("fen", fen), zap.Error(err))
		}
	}
	return a, nil
}

func (m *Memo) remember(key string, a Analysis) {
	m.mu.Lock()
	m.entries[key] = a
	m.mu.Unlock()
}

// Stats returns how many lookups were answered from memory and how many were not.
func (m *Memo) Stats() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Evaluate analyzes p. Positions without legal moves are scored directly:
// checkmate is a mate in 0 for the side that just moved, stalemate is 0.
func Evaluate(ctx context.Context, a Analyzer, p *position.Position) (Analysis, error) {
	if len(p.LegalMoves()) == 0 {
		if p.IsCheck() {
			return Analysis{Score: Mate(0, other(p.Turn()))}, nil
		}
		return Analysis{Score: Centipawns(0)}, nil
	}
	return a.Analyze(ctx, p.FEN())
}

// Best returns the engine's preferred move in p along with the analysis.
func Best(ctx context.Context, a Analyzer, p *position.Position) (*chesslib.Move, Analysis, error) {
	an, err := Evaluate(ctx, a, p)
	if err != nil {
		return nil, Analysis{}, err
	}
	if an.BestMove() == "" {
		return nil, an, fmt.Errorf("%w: %s", ErrNoBestMove, p.FEN())
	}
	m, err := p.ParseUCI(an.BestMove())
	if err != nil {
		return nil, an, fmt.Errorf("eval: engine best move: %w", err)
	}
	return m, an, nil
}
