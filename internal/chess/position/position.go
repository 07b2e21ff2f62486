// Package position is a thin query layer over the corentings rules engine:
// attack sets, pins, checks and a balanced push/pop stack for look-ahead.
package position

import (
	"errors"
	"fmt"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned when a move text does not name a legal move.
var ErrIllegalMove = errors.New("position: illegal move")

type frame struct {
	pos   *chesslib.Position
	move  *chesslib.Move
	null  bool
	board *[64]chesslib.Piece
	legal []*chesslib.Move
}

// Position is a stack of rules-engine positions. The top of the stack is the
// position every query answers for. Push and Pop must stay balanced.
type Position struct {
	frames []*frame
}

// New wraps an existing rules-engine position.
func New(pos *chesslib.Position) *Position {
	return &Position{frames: []*frame{{pos: pos}}}
}

// Start returns the standard initial position.
func Start() *Position {
	return New(chesslib.NewGame().Position())
}

// FromFEN parses fen into a Position.
func FromFEN(fen string) (*Position, error) {
	opt, err := chesslib.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("position: parse fen %q: %w", fen, err)
	}
	return New(chesslib.NewGame(opt).Position()), nil
}

func (p *Position) top() *frame { return p.frames[len(p.frames)-1] }

// Raw exposes the current rules-engine position.
func (p *Position) Raw() *chesslib.Position { return p.top().pos }

func (p *Position) Turn() chesslib.Color { return p.top().pos.Turn() }

func (p *Position) FEN() string { return p.top().pos.String() }

// Depth is the number of pushed moves above the root.
func (p *Position) Depth() int { return len(p.frames) - 1 }

func (p *Position) squares() *[64]chesslib.Piece {
	f := p.top()
	if f.board == nil {
		var b [64]chesslib.Piece
		board := f.pos.Board()
		for i := range b {
			b[i] = board.Piece(chesslib.Square(i))
		}
		f.board = &b
	}
	return f.board
}

func (p *Position) PieceAt(sq chesslib.Square) chesslib.Piece {
	if uint(sq) >= 64 {
		return chesslib.NoPiece
	}
	return p.squares()[sq]
}

// KindAt returns the kind of the piece on sq, NoKind when empty.
func (p *Position) KindAt(sq chesslib.Square) Kind {
	pc := p.PieceAt(sq)
	if pc == chesslib.NoPiece {
		return NoKind
	}
	return KindOf(pc.Type())
}

// ColorAt returns the color of the piece on sq and whether the square is occupied.
func (p *Position) ColorAt(sq chesslib.Square) (chesslib.Color, bool) {
	pc := p.PieceAt(sq)
	if pc == chesslib.NoPiece {
		return chesslib.NoColor, false
	}
	return pc.Color(), true
}

// Occupied reports whether sq holds a piece of color c.
func (p *Position) Occupied(c chesslib.Color, sq chesslib.Square) bool {
	col, ok := p.ColorAt(sq)
	return ok && col == c
}

// Pieces returns the squares occupied by color c.
func (p *Position) Pieces(c chesslib.Color) SquareSet {
	var set SquareSet
	for i, pc := range p.squares() {
		if pc != chesslib.NoPiece && pc.Color() == c {
			set = set.With(chesslib.Square(i))
		}
	}
	return set
}

// King returns the square of c's king.
func (p *Position) King(c chesslib.Color) (chesslib.Square, bool) {
	for i, pc := range p.squares() {
		if pc != chesslib.NoPiece && pc.Color() == c && pc.Type() == chesslib.King {
			return chesslib.Square(i), true
		}
	}
	return chesslib.NoSquare, false
}

// Attacks returns the squares the piece on sq attacks, ignoring whether moving
// there would leave its own king in check.
func (p *Position) Attacks(sq chesslib.Square) SquareSet {
	pc := p.PieceAt(sq)
	if pc == chesslib.NoPiece {
		return 0
	}
	f, r := fileRank(sq)
	var set SquareSet
	switch KindOf(pc.Type()) {
	case Pawn:
		dr := 1
		if pc.Color() == chesslib.Black {
			dr = -1
		}
		set = step(set, f-1, r+dr)
		set = step(set, f+1, r+dr)
	case Knight:
		for _, d := range knightSteps {
			set = step(set, f+d[0], r+d[1])
		}
	case King:
		for _, d := range kingSteps {
			set = step(set, f+d[0], r+d[1])
		}
	case Bishop:
		set = p.slide(f, r, bishopDirs[:])
	case Rook:
		set = p.slide(f, r, rookDirs[:])
	case Queen:
		set = p.slide(f, r, bishopDirs[:]) | p.slide(f, r, rookDirs[:])
	}
	return set
}

func (p *Position) slide(f, r int, dirs [][2]int) SquareSet {
	var set SquareSet
	for _, d := range dirs {
		for cf, cr := f+d[0], r+d[1]; onBoard(cf, cr); cf, cr = cf+d[0], cr+d[1] {
			sq := toSquare(cf, cr)
			set = set.With(sq)
			if p.PieceAt(sq) != chesslib.NoPiece {
				break
			}
		}
	}
	return set
}

// Attackers returns the squares of c's pieces that attack sq.
func (p *Position) Attackers(c chesslib.Color, sq chesslib.Square) SquareSet {
	var set SquareSet
	for _, from := range p.Pieces(c).Squares() {
		if p.Attacks(from).Has(sq) {
			set = set.With(from)
		}
	}
	return set
}

func (p *Position) IsAttackedBy(c chesslib.Color, sq chesslib.Square) bool {
	return !p.Attackers(c, sq).Empty()
}

// IsDefended reports whether any piece of by attacks sq.
func (p *Position) IsDefended(sq chesslib.Square, by chesslib.Color) bool {
	return p.IsAttackedBy(by, sq)
}

// IsPinned reports whether the square sq lies on a line between c's king and an
// enemy slider with nothing else in between. An empty sq on such a line
// also counts, matching how an absolute pin mask is usually defined.
func (p *Position) IsPinned(c chesslib.Color, sq chesslib.Square) bool {
	king, ok := p.King(c)
	if !ok || king == sq {
		return false
	}
	kf, kr := fileRank(king)
	check := func(dirs [][2]int, sliders ...chesslib.PieceType) bool {
		for _, d := range dirs {
			seen := false
			for cf, cr := kf+d[0], kr+d[1]; onBoard(cf, cr); cf, cr = cf+d[0], cr+d[1] {
				cur := toSquare(cf, cr)
				if cur == sq {
					seen = true
					continue
				}
				pc := p.PieceAt(cur)
				if pc == chesslib.NoPiece {
					continue
				}
				if !seen || pc.Color() == c {
					break
				}
				for _, t := range sliders {
					if pc.Type() == t {
						return true
					}
				}
				break
			}
		}
		return false
	}
	return check(rookDirs[:], chesslib.Rook, chesslib.Queen) ||
		check(bishopDirs[:], chesslib.Bishop, chesslib.Queen)
}

// IsCheck reports whether the side to move is in check.
func (p *Position) IsCheck() bool {
	turn := p.Turn()
	king, ok := p.King(turn)
	return ok && p.IsAttackedBy(Other(turn), king)
}

// LegalMoves returns the legal moves for the side to move.
func (p *Position) LegalMoves() []*chesslib.Move {
	f := p.top()
	if f.legal == nil {
		valid := f.pos.ValidMoves()
		f.legal = make([]*chesslib.Move, len(valid))
		for i := range valid {
			f.legal[i] = &valid[i]
		}
	}
	return f.legal
}

func (p *Position) IsCheckmate() bool { return len(p.LegalMoves()) == 0 && p.IsCheck() }

func (p *Position) IsStalemate() bool { return len(p.LegalMoves()) == 0 && !p.IsCheck() }

// SameMove compares moves by squares and promotion only.
func SameMove(a, b *chesslib.Move) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.S1() == b.S1() && a.S2() == b.S2() && a.Promo() == b.Promo()
}

// Legal returns the legal move matching m, carrying the engine's move tags.
func (p *Position) Legal(m *chesslib.Move) (*chesslib.Move, bool) {
	for _, lm := range p.LegalMoves() {
		if SameMove(lm, m) {
			return lm, true
		}
	}
	return nil, false
}

// ParseUCI resolves a long-algebraic move such as "e2e4" or "e7e8q".
func (p *Position) ParseUCI(s string) (*chesslib.Move, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, lm := range p.LegalMoves() {
		if UCI(lm) == want {
			return lm, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrIllegalMove, s, p.FEN())
}

// UCI renders m in long-algebraic form.
func UCI(m *chesslib.Move) string {
	return chesslib.UCINotation{}.Encode(nil, m)
}

// SAN renders m in standard algebraic notation for the current position.
func (p *Position) SAN(m *chesslib.Move) string {
	if lm, ok := p.Legal(m); ok {
		m = lm
	}
	return chesslib.AlgebraicNotation{}.Encode(p.top().pos, m)
}

// MovingKind is the kind of the piece m moves.
func (p *Position) MovingKind(m *chesslib.Move) Kind { return p.KindAt(m.S1()) }

func (p *Position) IsEnPassant(m *chesslib.Move) bool {
	if p.KindAt(m.S1()) != Pawn {
		return false
	}
	return m.S1().File() != m.S2().File() && p.PieceAt(m.S2()) == chesslib.NoPiece
}

func (p *Position) IsCapture(m *chesslib.Move) bool {
	if p.IsEnPassant(m) {
		return true
	}
	mover, ok := p.ColorAt(m.S1())
	if !ok {
		return false
	}
	target, occupied := p.ColorAt(m.S2())
	return occupied && target != mover
}

func (p *Position) IsCastling(m *chesslib.Move) bool {
	if p.KindAt(m.S1()) != King {
		return false
	}
	d := int(m.S1().File()) - int(m.S2().File())
	return d > 1 || d < -1
}

// Push plays m on top of the stack. m must be legal in the current position.
func (p *Position) Push(m *chesslib.Move) {
	lm, ok := p.Legal(m)
	if !ok {
		panic(fmt.Sprintf("position: push of illegal move %s in %s", UCI(m), p.FEN()))
	}
	next := p.top().pos.Update(lm)
	p.frames = append(p.frames, &frame{pos: next, move: lm})
}

// PushNull passes the turn to the opponent without moving a piece.
func (p *Position) PushNull() {
	fields := strings.Fields(p.FEN())
	if len(fields) >= 4 {
		if fields[1] == "w" {
			fields[1] = "b"
		} else {
			fields[1] = "w"
		}
		fields[3] = "-"
	}
	opt, err := chesslib.FEN(strings.Join(fields, " "))
	if err != nil {
		panic(fmt.Sprintf("position: null move from %s: %v", p.FEN(), err))
	}
	p.frames = append(p.frames, &frame{pos: chesslib.NewGame(opt).Position(), null: true})
}

// Pop removes the most recent Push or PushNull.
func (p *Position) Pop() {
	if len(p.frames) == 1 {
		panic("position: pop without matching push")
	}
	p.frames[len(p.frames)-1] = nil
	p.frames = p.frames[:len(p.frames)-1]
}

// History returns the moves pushed since the root, skipping null moves.
func (p *Position) History() []*chesslib.Move {
	out := make([]*chesslib.Move, 0, len(p.frames)-1)
	for _, f := range p.frames[1:] {
		if !f.null {
			out = append(out, f.move)
		}
	}
	return out
}

// Snapshot returns an independent Position rooted at the current state.
func (p *Position) Snapshot() *Position {
	return New(p.top().pos)
}

// Peek plays m, runs fn against the resulting position and restores the
// stack before returning, whatever path fn takes out.
func Peek[T any](p *Position, m *chesslib.Move, fn func(*Position) T) T {
	p.Push(m)
	defer p.Pop()
	return fn(p)
}

// PeekErr is Peek for functions that can fail.
func PeekErr[T any](p *Position, m *chesslib.Move, fn func(*Position) (T, error)) (T, error) {
	p.Push(m)
	defer p.Pop()
	return fn(p)
}

// PeekNull runs fn with the turn passed to the opponent.
func PeekNull[T any](p *Position, fn func(*Position) T) T {
	p.PushNull()
	defer p.Pop()
	return fn(p)
}

// PeekNullErr is PeekNull for functions that can fail.
func PeekNullErr[T any](p *Position, fn func(*Position) (T, error)) (T, error) {
	p.PushNull()
	defer p.Pop()
	return fn(p)
}

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookDirs    = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs  = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func fileRank(sq chesslib.Square) (int, int) { return int(sq) % 8, int(sq) / 8 }

func onBoard(f, r int) bool { return f >= 0 && f < 8 && r >= 0 && r < 8 }

func toSquare(f, r int) chesslib.Square { return chesslib.Square(r*8 + f) }

func step(set SquareSet, f, r int) SquareSet {
	if !onBoard(f, r) {
		return set
	}
	return set.With(toSquare(f, r))
}

// Rank returns the zero-based rank index of sq (0 = first rank).
func Rank(sq chesslib.Square) int { return int(sq) / 8 }

// File returns the zero-based file index of sq (0 = a-file).
func File(sq chesslib.Square) int { return int(sq) % 8 }

// Square builds a square from zero-based file and rank indexes.
func Square(file, rank int) chesslib.Square { return toSquare(file, rank) }

// MustSquare parses algebraic square names such as "e4"; it panics on bad input.
func MustSquare(name string) chesslib.Square {
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		panic("position: bad square " + name)
	}
	return toSquare(int(name[0]-'a'), int(name[1]-'1'))
}
