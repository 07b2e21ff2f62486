package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	chesslib "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/openingbook"
	"github.com/park285/cheese-review/internal/chess/position"
	"github.com/park285/cheese-review/internal/msgcat"
)

// fakeOracle answers from a table keyed by board and side to move. Unknown
// positions score 0 with the first legal move as the principal variation.
type fakeOracle struct {
	mu      sync.Mutex
	answers map[string]eval.Analysis
	calls   int
	err     error
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{answers: make(map[string]eval.Analysis)}
}

func fenKey(fen string) string {
	f := strings.Fields(fen)
	if len(f) < 2 {
		return fen
	}
	return f[0] + " " + f[1]
}

func (f *fakeOracle) set(fen string, score eval.Evaluation, pv ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[fenKey(fen)] = eval.Analysis{Score: score, PV: pv, Depth: 10}
}

func (f *fakeOracle) Analyze(ctx context.Context, fen string, limit eval.Limit) (eval.Analysis, error) {
	f.mu.Lock()
	f.calls++
	a, ok := f.answers[fenKey(fen)]
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return eval.Analysis{}, err
	}
	if ok {
		return a, nil
	}
	p, perr := position.FromFEN(fen)
	if perr != nil {
		return eval.Analysis{}, perr
	}
	moves := p.LegalMoves()
	if len(moves) == 0 {
		return eval.Analysis{Score: eval.Centipawns(0)}, nil
	}
	return eval.Analysis{Score: eval.Centipawns(0), PV: []string{position.UCI(moves[0])}}, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// bound fixes the limit so the oracle can serve as an Analyzer.
type bound struct{ o eval.Oracle }

func (b bound) Analyze(ctx context.Context, fen string) (eval.Analysis, error) {
	return b.o.Analyze(ctx, fen, eval.Limit{Depth: 10})
}

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

func after(p *position.Position, m *chesslib.Move) string {
	return position.Peek(p, m, func(q *position.Position) string { return q.FEN() })
}

func newTestClassifier(o *fakeOracle) *Classifier {
	return NewClassifier(bound{o}, nil, msgcat.MustDefault(), nil)
}

const backRank = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"

func TestBestDevelopingMove(t *testing.T) {
	p := position.Start()
	p.Push(move(t, p, "e2e4"))
	p.Push(move(t, p, "e7e5"))

	o := newFakeOracle()
	nf3 := move(t, p, "g1f3")
	o.set(p.FEN(), eval.Centipawns(30), "g1f3")
	o.set(after(p, nf3), eval.Centipawns(30), "b8c6")

	v, err := newTestClassifier(o).Classify(context.Background(), Input{Pos: p, Move: nf3, Ply: 2})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if v.Classification.Label != Best {
		t.Fatalf("label = %s, want best", v.Classification)
	}
	if !strings.Contains(v.Text, "This develops a knight.") {
		t.Fatalf("text %q does not mention knight development", v.Text)
	}
	if p.Depth() != 2 {
		t.Fatalf("classifier left the position at depth %d", p.Depth())
	}
}

func TestBlunderLeavesQueenHanging(t *testing.T) {
	p := setup(t, "4k3/p7/8/3q4/4P3/8/8/4K3 b - - 0 1")
	a6 := move(t, p, "a7a6")

	o := newFakeOracle()
	o.set(p.FEN(), eval.Centipawns(-900), "d5e4")
	o.set(after(p, a6), eval.Centipawns(0), "e4d5")

	v, err := newTestClassifier(o).Classify(context.Background(), Input{Pos: p, Move: a6})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if v.Classification.Label != Blunder {
		t.Fatalf("label = %s, want blunder", v.Classification)
	}
	if !strings.Contains(v.Text, "queen hanging on d5") {
		t.Fatalf("text %q does not name the hanging queen", v.Text)
	}
	if !strings.HasPrefix(v.BestSAN, "Qxe4") {
		t.Fatalf("best = %s, want Qxe4", v.BestSAN)
	}
}

func TestUnfavorableNotesCarryNoMentions(t *testing.T) {
	// The c6 pawn covers the queen, so only the lower value attacker is named.
	p := setup(t, "4k3/p7/2p5/3q4/4P3/8/8/4K3 b - - 0 1")
	a6 := move(t, p, "a7a6")

	o := newFakeOracle()
	o.set(p.FEN(), eval.Centipawns(-900), "d5e4")
	o.set(after(p, a6), eval.Centipawns(0), "e4d5")

	v, err := newTestClassifier(o).Classify(context.Background(), Input{Pos: p, Move: a6})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !strings.Contains(v.Text, "A queen can be captured by a lower value piece.") {
		t.Fatalf("text %q does not warn about the queen", v.Text)
	}
	if strings.Contains(v.Text, "hanging") {
		t.Fatalf("text %q calls the defended queen hanging", v.Text)
	}
	if diff := cmp.Diff(Mentions{}, v.Next().Mentions); diff != "" {
		t.Fatalf("mentions mismatch (-want +got):\n%s", diff)
	}
}

func TestBandsUseRawCentipawns(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/P7/Q3K3 w - - 0 1"
	cases := []struct {
		after int
		want  Label
	}{
		{1490, Excellent},
		{1420, Good},
		{1300, Inaccuracy},
		{1100, Mistake},
		{900, Blunder},
	}
	for _, tc := range cases {
		p := setup(t, fen)
		a3 := move(t, p, "a2a3")
		o := newFakeOracle()
		o.set(p.FEN(), eval.Centipawns(1500), "e1d2")
		o.set(after(p, a3), eval.Centipawns(tc.after), "e8d7")

		v, err := newTestClassifier(o).Classify(context.Background(), Input{Pos: p, Move: a3})
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if v.Classification.Label != tc.want {
			t.Fatalf("+15.00 -> %+.2f labelled %s, want %s", float64(tc.after)/100, v.Classification, tc.want)
		}
	}
}

func TestCentipawnLoss(t *testing.T) {
	cases := []struct {
		best, played eval.Evaluation
		want         int
	}{
		{eval.Centipawns(1500), eval.Centipawns(1100), 400},
		{eval.Centipawns(-1200), eval.Centipawns(-2500), 1300},
		{eval.Centipawns(40), eval.Centipawns(40), 0},
		{eval.Mate(3, chesslib.White), eval.Centipawns(200), eval.MateClamp - 200},
		{eval.Mate(2, chesslib.Black), eval.Mate(5, chesslib.Black), 0},
	}
	for _, tc := range cases {
		if got := centipawnLoss(tc.best, tc.played); got != tc.want {
			t.Fatalf("centipawnLoss(%s, %s) = %d, want %d", tc.best, tc.played, got, tc.want)
		}
	}
}

func TestBeginsForcedMate(t *testing.T) {
	p := setup(t, backRank)
	h3 := move(t, p, "h2h3")

	o := newFakeOracle()
	o.set(p.FEN(), eval.Centipawns(300), "g1f1")
	o.set(after(p, h3), eval.Mate(3, chesslib.White), "g8f8")

	v, err := newTestClassifier(o).Classify(context.Background(), Input{Pos: p, Move: h3})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := Classification{Label: MatesIn, N: 3}
	if diff := cmp.Diff(want, v.Classification); diff != "" {
		t.Fatalf("classification (-want +got):\n%s", diff)
	}
	if !strings.Contains(v.Text, "ensures mate in 3") {
		t.Fatalf("text = %q", v.Text)
	}
}

func TestQueenSacrificeIntoMateIsBrilliant(t *testing.T) {
	p := setup(t, "6k1/5ppp/5n2/8/8/8/5PPP/3Q2K1 w - - 0 1")
	qd5 := move(t, p, "d1d5")

	o := newFakeOracle()
	o.set(p.FEN(), eval.Centipawns(200), "d1d5")
	o.set(after(p, qd5), eval.Mate(4, chesslib.White), "f6d5")

	v, err := newTestClassifier(o).Classify(context.Background(), Input{Pos: p, Move: qd5})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if v.Classification.Label != Brilliant {
		t.Fatalf("label = %s, want brilliant", v.Classification)
	}
	for _, want := range []string{"sacrifices the queen", "mate in 4"} {
		if !strings.Contains(v.Text, want) {
			t.Fatalf("text %q missing %q", v.Text, want)
		}
	}
}

func TestMateSequenceTransitions(t *testing.T) {
	tests := []struct {
		name   string
		played string
		top    string
		prev   eval.Evaluation
		after  eval.Evaluation
		want   Classification
		phrase string
	}{
		{
			name:   "continues",
			played: "h2h3", top: "g1f1",
			prev: eval.Mate(3, chesslib.White), after: eval.Mate(2, chesslib.White),
			want:   Classification{Label: ContinuesMateIn, N: 2},
			phrase: "mate in 2",
		},
		{
			name:   "continues on the top line",
			played: "h2h3", top: "h2h3",
			prev: eval.Mate(3, chesslib.White), after: eval.Mate(2, chesslib.White),
			want: Classification{Label: Best},
		},
		{
			name:   "slower",
			played: "h2h3", top: "g1f1",
			prev: eval.Mate(2, chesslib.White), after: eval.Mate(4, chesslib.White),
			want: Classification{Label: Good},
		},
		{
			name:   "lost",
			played: "h2h3", top: "g1f1",
			prev: eval.Mate(2, chesslib.White), after: eval.Centipawns(250),
			want: Classification{Label: LostMate},
		},
		{
			name:   "allows mate",
			played: "h2h3", top: "g1f1",
			prev: eval.Centipawns(0), after: eval.Mate(2, chesslib.Black),
			want: Classification{Label: GetsMatedIn, N: 2},
		},
		{
			name:   "still mated",
			played: "h2h3", top: "g1f1",
			prev: eval.Mate(3, chesslib.Black), after: eval.Mate(2, chesslib.Black),
			want: Classification{Label: GetsMatedIn, N: 2},
		},
		{
			name:   "checkmate",
			played: "a1a8", top: "a1a8",
			prev: eval.Mate(1, chesslib.White), after: eval.Mate(0, chesslib.White),
			want:   Classification{Label: Best},
			phrase: "Checkmate!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := setup(t, backRank)
			m := move(t, p, tt.played)
			o := newFakeOracle()
			o.set(p.FEN(), tt.prev, tt.top)
			if tt.played != "a1a8" {
				o.set(after(p, m), tt.after, "g8f8")
			}

			v, err := newTestClassifier(o).Classify(context.Background(), Input{
				Pos:  p,
				Move: m,
				Prev: Context{Score: tt.prev, HasScore: true},
			})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if diff := cmp.Diff(tt.want, v.Classification); diff != "" {
				t.Fatalf("classification (-want +got):\n%s", diff)
			}
			if tt.phrase != "" && !strings.Contains(v.Text, tt.phrase) {
				t.Fatalf("text %q missing %q", v.Text, tt.phrase)
			}
			if v.Text == "" {
				t.Fatalf("empty annotation")
			}
		})
	}
}

func TestBookMove(t *testing.T) {
	p := position.Start()
	e4 := move(t, p, "e2e4")
	o := newFakeOracle()

	book, err := openingbook.New("")
	if err != nil {
		t.Fatalf("openingbook.New: %v", err)
	}
	c := NewClassifier(bound{o}, book, msgcat.MustDefault(), nil)
	v, err := c.Classify(context.Background(), Input{Pos: p, Move: e4, Moves: []*chesslib.Move{e4}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if v.Classification.Label != Book {
		t.Fatalf("label = %s, want book", v.Classification)
	}
	if v.Opening.Name == "" || !strings.Contains(v.Text, v.Opening.Name) {
		t.Fatalf("opening %v not named in %q", v.Opening, v.Text)
	}
}

func TestEngineFailureIsFatal(t *testing.T) {
	o := newFakeOracle()
	o.err = errors.New("engine crashed")
	svc := newTestService(t, o)

	g, err := ParseMoves("", []string{"e2e4", "e7e5"})
	if err != nil {
		t.Fatalf("ParseMoves: %v", err)
	}
	_, err = svc.Review(context.Background(), g, eval.Limit{Depth: 8})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := ParsePGN(strings.NewReader("this is not a game")); !errors.Is(err, ErrParse) {
		t.Fatalf("ParsePGN err = %v, want ErrParse", err)
	}
	if _, err := ParseMoves("", []string{"e2e4", "e2e4"}); !errors.Is(err, ErrParse) {
		t.Fatalf("ParseMoves err = %v, want ErrParse", err)
	}
	if _, err := ParseMoves("", nil); !errors.Is(err, ErrParse) {
		t.Fatalf("ParseMoves(nil) err = %v, want ErrParse", err)
	}
}

func TestParsePGN(t *testing.T) {
	const pgn = `[Event "Casual"]
[White "Alice"]
[Black "Bob"]
[Result "*"]

1. e4 e5 2. Nf3 Nc6 *`
	g, err := ParsePGN(strings.NewReader(pgn))
	if err != nil {
		t.Fatalf("ParsePGN: %v", err)
	}
	if diff := cmp.Diff([]string{"e2e4", "e7e5", "g1f3", "b8c6"}, g.UCI()); diff != "" {
		t.Fatalf("moves (-want +got):\n%s", diff)
	}
	if g.Tags["White"] != "Alice" || g.Tags["Black"] != "Bob" {
		t.Fatalf("tags = %v", g.Tags)
	}
	if !g.FromStart() {
		t.Fatalf("game should start from the initial position")
	}
	if g.Key(eval.Limit{Depth: 8}) == g.Key(eval.Limit{Depth: 9}) {
		t.Fatalf("review key ignores the limit")
	}
}
