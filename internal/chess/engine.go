package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	chesslib "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/uci"
)

// ErrNoScore is returned when a search finishes without any score line.
var ErrNoScore = errors.New("engine returned no score")

type EngineConfig struct {
	BinaryPath string
	// PoolSize bounds concurrent engine processes. Zero picks a CPU-based default.
	PoolSize int
	Preset   AnalysisPreset
	Logger   *zap.Logger
}

// Engine answers eval.Oracle queries from a pool of UCI processes.
type Engine struct {
	pool   *uci.Pool
	logger *zap.Logger
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: cfg.BinaryPath,
		Capacity:   cfg.PoolSize,
		Options:    cfg.Preset.Options(),
	})
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		pool:   pool,
		logger: logger,
	}, nil
}

// Analyze runs one search on fen. Scores are converted from the side to
// move's view to the tagged, White-relative Evaluation.
func (e *Engine) Analyze(ctx context.Context, fen string, limit eval.Limit) (eval.Analysis, error) {
	start := time.Now()
	if err := limit.Validate(); err != nil {
		return eval.Analysis{}, err
	}
	turn, err := sideToMove(fen)
	if err != nil {
		return eval.Analysis{}, err
	}

	session, err := e.pool.Acquire(ctx)
	if err != nil {
		return eval.Analysis{}, fmt.Errorf("acquire engine: %w", err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return eval.Analysis{}, err
	}

	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Limits: searchLimits(limit)})
	if err != nil {
		releaseErr = err
		return eval.Analysis{}, fmt.Errorf("search %q: %w", fen, err)
	}

	a, err := analysisFromResponse(turn, resp)
	if err != nil {
		return eval.Analysis{}, fmt.Errorf("search %q: %w", fen, err)
	}
	if ce := e.logger.Check(zap.DebugLevel, "engine analysis"); ce != nil {
		goCmd, _ := FormatGoCommand(limit)
		ce.Write(
			zap.String("fen", fen),
			zap.String("go", goCmd),
			zap.String("score", a.Score.String()),
			zap.String("best", a.BestMove()),
			zap.Duration("took", time.Since(start)))
	}
	return a, nil
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

func analysisFromResponse(turn chesslib.Color, resp uci.SearchResponse) (eval.Analysis, error) {
	if len(resp.Candidates) == 0 {
		return eval.Analysis{}, ErrNoScore
	}
	top := resp.Candidates[0]
	a := eval.Analysis{
		Score: eval.FromRelative(turn, top.Score.CP, top.Score.Mate, top.Score.IsMate),
		Depth: top.Depth,
	}
	if len(top.Principal) > 0 {
		a.PV = append([]string(nil), top.Principal...)
	} else if resp.BestMove != "" {
		a.PV = []string{resp.BestMove}
	}
	return a, nil
}

func sideToMove(fen string) (chesslib.Color, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return chesslib.NoColor, fmt.Errorf("invalid fen %q: missing side to move", fen)
	}
	switch fields[1] {
	case "w":
		return chesslib.White, nil
	case "b":
		return chesslib.Black, nil
	}
	return chesslib.NoColor, fmt.Errorf("invalid fen %q: side to move %q", fen, fields[1])
}
