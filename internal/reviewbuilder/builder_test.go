package reviewbuilder

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/position"
	"github.com/park285/cheese-review/internal/config"
	"github.com/park285/cheese-review/internal/service/review"
)

// evenOracle scores every position level and suggests its first legal move.
type evenOracle struct{}

func (evenOracle) Analyze(_ context.Context, fen string, _ eval.Limit) (eval.Analysis, error) {
	p, err := position.FromFEN(fen)
	if err != nil {
		return eval.Analysis{}, err
	}
	a := eval.Analysis{Score: eval.Centipawns(0), Depth: 1}
	if moves := p.LegalMoves(); len(moves) > 0 {
		a.PV = []string{position.UCI(moves[0])}
	}
	return a, nil
}

func TestAssembleInMemoryWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.AppConfig{
		ReviewPreset:    "fast",
		ReviewDepth:     6,
		PrefetchWorkers: 2,
		RedisURL:        "redis://" + mr.Addr() + "/0",
		NotifyMode:      "off",
	}
	ctx := context.Background()
	deps, err := Assemble(ctx, cfg, evenOracle{}, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	defer deps.Close()

	if _, ok := deps.Repo.(*review.MemoryRepository); !ok {
		t.Fatalf("repo = %T, want in-memory", deps.Repo)
	}
	if deps.Store == nil || deps.Stream != nil {
		t.Fatalf("store %v stream %v", deps.Store, deps.Stream)
	}

	limit, err := deps.Service.Limit("", eval.Limit{})
	if err != nil || limit != (eval.Limit{Depth: 6}) {
		t.Fatalf("configured limit = %+v, %v", limit, err)
	}

	g, err := review.ParseMoves("", []string{"e2e4", "e7e5"})
	if err != nil {
		t.Fatalf("ParseMoves: %v", err)
	}
	r, err := deps.Service.ReviewGame(ctx, g, eval.Limit{})
	if err != nil {
		t.Fatalf("ReviewGame: %v", err)
	}
	if r.ID == "" || len(r.Moves) != 2 {
		t.Fatalf("review = %+v", r)
	}

	cached := 0
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "eval:") {
			cached++
		}
	}
	if cached == 0 {
		t.Fatalf("no evaluations cached in redis: %v", mr.Keys())
	}
}

func TestAssembleRejectsBadNotifyMode(t *testing.T) {
	cfg := &config.AppConfig{ReviewPreset: "standard", NotifyMode: "pigeon"}
	if _, err := Assemble(context.Background(), cfg, evenOracle{}, nil); err == nil {
		t.Fatalf("unknown notify mode accepted")
	}
}

func TestNewRequiresEngine(t *testing.T) {
	if _, err := New(context.Background(), &config.AppConfig{}, nil); err == nil {
		t.Fatalf("missing STOCKFISH_PATH accepted")
	}
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("nil config accepted")
	}
}

func TestCloseNil(t *testing.T) {
	var d *Deps
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
