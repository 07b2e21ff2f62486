package position

import (
	"testing"

	chesslib "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"
)

func mustFEN(t *testing.T, fen string) *Position {
	t.Helper()
	p, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return p
}

func mustMove(t *testing.T, p *Position, uci string) *chesslib.Move {
	t.Helper()
	m, err := p.ParseUCI(uci)
	if err != nil {
		t.Fatalf("ParseUCI(%q): %v", uci, err)
	}
	return m
}

func names(set SquareSet) []string {
	var out []string
	for _, sq := range set.Squares() {
		out = append(out, sq.String())
	}
	return out
}

func TestAttackersStartPosition(t *testing.T) {
	p := Start()
	got := names(p.Attackers(chesslib.White, MustSquare("f3")))
	want := []string{"g1", "e2", "g2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("attackers of f3 (-want +got):\n%s", diff)
	}
	if p.IsAttackedBy(chesslib.Black, MustSquare("e4")) {
		t.Fatalf("e4 should not be attacked by black at the start")
	}
}

func TestSliderAttacksStopAtBlocker(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/8/1p6/8/8/R3K3 w - - 0 1")
	att := p.Attacks(MustSquare("a1"))
	for _, sq := range []string{"a2", "a8", "b1", "c1", "d1", "e1"} {
		if !att.Has(MustSquare(sq)) {
			t.Fatalf("rook should attack %s", sq)
		}
	}
	if att.Has(MustSquare("f1")) {
		t.Fatalf("rook attacks past the king")
	}
}

func TestIsPinned(t *testing.T) {
	p := mustFEN(t, "4k3/4r3/8/8/8/8/4N3/4K3 w - - 0 1")
	if !p.IsPinned(chesslib.White, MustSquare("e2")) {
		t.Fatalf("knight on e2 should be pinned")
	}
	if p.IsPinned(chesslib.White, MustSquare("d2")) {
		t.Fatalf("d2 is not on a pin line")
	}
	if p.IsPinned(chesslib.Black, MustSquare("e7")) {
		t.Fatalf("black rook is not pinned")
	}
}

func TestIsCheckAndMate(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/8/8/8/8/4R1K1 b - - 0 1")
	if !p.IsCheck() {
		t.Fatalf("black should be in check")
	}
	mate := mustFEN(t, "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1")
	if !mate.IsCheckmate() {
		t.Fatalf("back rank mate not detected")
	}
	stale := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if !stale.IsStalemate() {
		t.Fatalf("stalemate not detected")
	}
}

func TestMoveFlags(t *testing.T) {
	p := mustFEN(t, "4k3/8/8/3pP3/8/8/8/4K2R w K d6 0 1")
	ep := mustMove(t, p, "e5d6")
	if !p.IsEnPassant(ep) || !p.IsCapture(ep) {
		t.Fatalf("e5d6 should be an en passant capture")
	}
	castle := mustMove(t, p, "e1g1")
	if !p.IsCastling(castle) || p.IsCapture(castle) {
		t.Fatalf("e1g1 should be castling")
	}
	if _, err := p.ParseUCI("e1e3"); err == nil {
		t.Fatalf("expected illegal move error")
	}
}

func TestPushPopAndNull(t *testing.T) {
	p := Start()
	fen := p.FEN()
	e4 := mustMove(t, p, "e2e4")

	san := Peek(p, e4, func(q *Position) string {
		if q.Turn() != chesslib.Black {
			t.Fatalf("turn after e4 = %v", q.Turn())
		}
		return q.SAN(mustMove(t, q, "g8f6"))
	})
	if san != "Nf6" {
		t.Fatalf("san = %q", san)
	}
	if p.Depth() != 0 || p.FEN() != fen {
		t.Fatalf("peek left the stack unbalanced: depth=%d", p.Depth())
	}

	got := PeekNull(p, func(q *Position) chesslib.Color { return q.Turn() })
	if got != chesslib.Black {
		t.Fatalf("null move should hand the turn to black")
	}

	p.Push(e4)
	if len(p.History()) != 1 {
		t.Fatalf("history = %d", len(p.History()))
	}
	p.Pop()
	defer func() {
		if recover() == nil {
			t.Fatalf("pop below the root should panic")
		}
	}()
	p.Pop()
}

func TestKindOrdering(t *testing.T) {
	if !(Pawn < Knight && Knight < Bishop && Bishop < Rook && Rook < Queen && Queen < King) {
		t.Fatalf("kinds are not value ordered")
	}
	if !MinorPair(Bishop, Knight) || MinorPair(Bishop, Bishop) {
		t.Fatalf("MinorPair")
	}
}
