package motif

import (
	"context"
	"strings"
	"testing"

	chesslib "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/position"
)

func setup(t *testing.T, fen string) *position.Position {
	t.Helper()
	p, err := position.FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	return p
}

func move(t *testing.T, p *position.Position, uci string) *chesslib.Move {
	t.Helper()
	m, err := p.ParseUCI(uci)
	if err != nil {
		t.Fatalf("ParseUCI(%s): %v", uci, err)
	}
	return m
}

func sq(name string) chesslib.Square { return position.MustSquare(name) }

func checkBalanced(t *testing.T, p *position.Position) {
	t.Helper()
	if p.Depth() != 0 {
		t.Fatalf("detector left %d pushed moves", p.Depth())
	}
}

func TestKnightFork(t *testing.T) {
	p := setup(t, "r3k3/8/8/1N6/8/8/8/4K3 w - - 0 1")
	got := CreatesFork(p, move(t, p, "b5c7"))
	want := []Target{{sq("a8"), position.Rook}, {sq("e8"), position.King}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fork targets (-want +got):\n%s", diff)
	}
	checkBalanced(t, p)
}

func TestPawnNeverForks(t *testing.T) {
	p := setup(t, "4k3/8/8/2n1n3/8/3P4/8/4K3 w - - 0 1")
	if got := CreatesFork(p, move(t, p, "d3d4")); got != nil {
		t.Fatalf("pawn fork reported: %v", got)
	}
}

func TestHangingQueen(t *testing.T) {
	p := setup(t, "4k3/8/8/3q4/4P3/8/8/4K3 b - - 0 1")
	if !IsHanging(p, sq("d5")) {
		t.Fatalf("queen on d5 should hang")
	}
	m := move(t, p, "e8f8")
	got := HangingAfter(p, m)
	want := []Target{{sq("d5"), position.Queen}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hanging after (-want +got):\n%s", diff)
	}
	if HangsPiece(p, m) {
		t.Fatalf("the queen was already hanging, nothing new hangs")
	}
	checkBalanced(t, p)
}

func TestHangsPieceDetectsNewTarget(t *testing.T) {
	p := setup(t, "4k3/8/8/8/4p3/8/8/2N1K3 w - - 0 1")
	if !HangsPiece(p, move(t, p, "c1d3")) {
		t.Fatalf("Nd3 walks into the e4 pawn")
	}
	if HangsPiece(p, move(t, p, "c1b3")) {
		t.Fatalf("Nb3 is safe")
	}
}

func TestCaptures(t *testing.T) {
	p := setup(t, "4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 1")
	m := move(t, p, "e4d5")
	if !CapturesFreePiece(p, m) || !CapturesHigherPiece(p, m) {
		t.Fatalf("exd5 wins a free queen")
	}
}

func TestDefendsHanging(t *testing.T) {
	p := setup(t, "4k3/8/8/8/8/8/1B6/R3K3 w - - 0 1")
	got := DefendsHanging(p, move(t, p, "a1a2"))
	want := []Target{{sq("b2"), position.Bishop}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defended (-want +got):\n%s", diff)
	}
}

func TestTradeAndSacrifice(t *testing.T) {
	trade := setup(t, "4k3/8/3p4/4n3/8/5N2/8/4K3 w - - 0 1")
	m := move(t, trade, "f3e5")
	if !IsPossibleTrade(trade, m) {
		t.Fatalf("Nxe5 dxe5 is a trade")
	}
	if IsSacrifice(trade, m) {
		t.Fatalf("an equal trade is not a sacrifice")
	}

	capture := setup(t, "4k3/8/3p4/4p3/8/8/8/4QK2 w - - 0 1")
	m = move(t, capture, "e1e5")
	if !IsSacrifice(capture, m) {
		t.Fatalf("Qxe5 into a pawn defender is a sacrifice")
	}
	if IsPossibleTrade(capture, m) {
		t.Fatalf("queen for pawn is not a trade")
	}

	quiet := setup(t, "4k3/8/5n2/8/8/8/8/3QK3 w - - 0 1")
	if !IsSacrifice(quiet, move(t, quiet, "d1g4")) {
		t.Fatalf("Qg4 under the knight is a sacrifice")
	}
	if IsSacrifice(quiet, move(t, quiet, "d1d2")) {
		t.Fatalf("Qd2 is not attacked")
	}
}

func TestPinAndAttack(t *testing.T) {
	p := setup(t, "4k3/8/2n5/8/8/8/8/4KB2 w - - 0 1")
	m := move(t, p, "f1b5")
	pinned, ok := PinsOpponent(p, m)
	if !ok || pinned.Square != sq("c6") || pinned.Kind != position.Knight {
		t.Fatalf("pin = %+v %v", pinned, ok)
	}
	att, ok := AttackedPiece(p, m)
	if !ok || att.Square != sq("c6") {
		t.Fatalf("attacked = %+v %v", att, ok)
	}
	checkBalanced(t, p)
}

func TestTrappedKnight(t *testing.T) {
	p := setup(t, "n3k3/1P6/3P4/P7/8/8/8/4K3 b - - 0 1")
	if !IsTrapped(p, sq("a8"), chesslib.White) {
		t.Fatalf("knight on a8 should be trapped")
	}
	if IsTrapped(p, sq("e8"), chesslib.White) {
		t.Fatalf("a king is never trapped")
	}

	before := setup(t, "n3k3/8/1P1P4/P7/8/8/8/4K3 w - - 0 1")
	got := Traps(before, move(t, before, "b6b7"))
	want := []Target{{sq("a8"), position.Knight}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("traps (-want +got):\n%s", diff)
	}
}

func TestDiscoveredCheck(t *testing.T) {
	p := setup(t, "4k3/7q/8/8/4B3/8/8/4R1K1 w - - 0 1")
	m := move(t, p, "e4f5")
	if !IsDiscoveredCheck(p, m) {
		t.Fatalf("Bf5 uncovers the rook")
	}
	got := DiscoveredCheckAttacks(p, m)
	want := []Target{{sq("h7"), position.Queen}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("attacks (-want +got):\n%s", diff)
	}
	if IsDiscoveredCheck(p, move(t, p, "e1e2")) {
		t.Fatalf("Re2 gives no check")
	}
}

func TestStructure(t *testing.T) {
	start := position.Start()
	if Developing(start, move(t, start, "g1f3")) != position.Knight {
		t.Fatalf("Nf3 develops a knight")
	}
	if Developing(start, move(t, start, "e2e4")) != position.NoKind {
		t.Fatalf("e4 is not piece development")
	}

	fian := setup(t, "rnbqkbnr/pppppppp/8/8/8/6P1/PPPPPP1P/RNBQKBNR w KQkq - 0 1")
	if !IsFianchetto(fian, move(t, fian, "f1g2")) {
		t.Fatalf("Bg2 is a fianchetto")
	}

	rook := setup(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if !RookToOpenFile(rook, move(t, rook, "a1d1")) {
		t.Fatalf("Rd1 reaches an open file")
	}
	if RookToOpenFile(rook, move(t, rook, "a1a5")) {
		t.Fatalf("Ra5 is not a sideways move")
	}
	if !IsEndgame(rook) || !KingOffBackRank(rook, move(t, rook, "e1e2")) {
		t.Fatalf("Ke2 leaves the back rank in an endgame")
	}
	if IsEndgame(start) {
		t.Fatalf("the start position is not an endgame")
	}

	check := setup(t, "4k3/8/8/8/8/2N5/8/r3K3 w - - 0 1")
	if !BlocksCheck(check, move(t, check, "c3d1")) {
		t.Fatalf("Nd1 blocks the check")
	}
	if BlocksCheck(check, move(t, check, "e1e2")) {
		t.Fatalf("a king move is not a block")
	}
}

func TestCapturableByLower(t *testing.T) {
	p := setup(t, "4k3/8/8/3r4/2P5/8/8/4K3 b - - 0 1")
	q := position.Peek(p, move(t, p, "e8e7"), func(q *position.Position) []Target {
		return CapturableByLower(q)
	})
	want := []Target{{sq("d5"), position.Rook}}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Fatalf("capturable (-want +got):\n%s", diff)
	}
}

func TestMetricsStartPosition(t *testing.T) {
	got := Measure(position.Start())
	want := Metrics{
		Development: Pair{0, 0},
		Mobility:    Pair{4, 4},
		Tension:     Pair{0, 0},
		Control:     Pair{38, 38},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metrics (-want +got):\n%s", diff)
	}
}

type analyzerFunc func(ctx context.Context, fen string) (eval.Analysis, error)

func (f analyzerFunc) Analyze(ctx context.Context, fen string) (eval.Analysis, error) {
	return f(ctx, fen)
}

func sideToMove(fen string) string { return strings.Fields(fen)[1] }

func TestThreatensMate(t *testing.T) {
	calls := 0
	a := analyzerFunc(func(_ context.Context, fen string) (eval.Analysis, error) {
		calls++
		if sideToMove(fen) == "w" {
			return eval.Analysis{Score: eval.Mate(2, chesslib.White), PV: []string{"a1a8"}}, nil
		}
		return eval.Analysis{Score: eval.Centipawns(0)}, nil
	})
	p := setup(t, "6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1")
	ok, err := ThreatensMate(context.Background(), a, p, move(t, p, "e1d2"))
	if err != nil || !ok {
		t.Fatalf("threat = %v, %v", ok, err)
	}
	checkBalanced(t, p)

	calls = 0
	ok, err = ThreatensMate(context.Background(), a, p, move(t, p, "a1a8"))
	if err != nil || ok || calls != 0 {
		t.Fatalf("a checking move is not a threat: %v %v calls=%d", ok, err, calls)
	}
}

func TestWinsTempo(t *testing.T) {
	a := analyzerFunc(func(_ context.Context, fen string) (eval.Analysis, error) {
		if sideToMove(fen) == "b" {
			return eval.Analysis{Score: eval.Centipawns(120)}, nil
		}
		return eval.Analysis{Score: eval.Centipawns(20), PV: []string{"f1b5"}}, nil
	})
	p := setup(t, "4k3/8/2n5/8/8/8/8/4KB2 w - - 0 1")
	ok, err := WinsTempo(context.Background(), a, p, move(t, p, "f1b5"))
	if err != nil || !ok {
		t.Fatalf("tempo = %v, %v", ok, err)
	}
	ok, err = WinsTempo(context.Background(), a, p, move(t, p, "e1d2"))
	if err != nil || ok {
		t.Fatalf("Kd2 attacks nothing: %v %v", ok, err)
	}
}
