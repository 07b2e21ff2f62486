package review

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/position"
)

var keptTags = []string{"Event", "Site", "Date", "White", "Black", "Result", "WhiteElo", "BlackElo", "ECO"}

// Game is a parsed move list ready for review.
type Game struct {
	StartFEN string
	Moves    []*chesslib.Move
	Tags     map[string]string
}

// FromStart reports whether the game begins at the standard start position.
func (g *Game) FromStart() bool {
	return sameFENPrefix(g.StartFEN, chesslib.StartingPosition().String())
}

// UCI lists the moves in long algebraic form.
func (g *Game) UCI() []string {
	out := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		out[i] = position.UCI(m)
	}
	return out
}

// Key identifies a review of g under limit: same moves, start and limit
// give the same key.
func (g *Game) Key(limit eval.Limit) string {
	h := sha256.New()
	io.WriteString(h, g.StartFEN)
	io.WriteString(h, "|")
	io.WriteString(h, strings.Join(g.UCI(), " "))
	io.WriteString(h, "|")
	io.WriteString(h, limit.Key())
	return hex.EncodeToString(h.Sum(nil))
}

// ParsePGN reads the first game of a PGN document.
func ParsePGN(r io.Reader) (*Game, error) {
	opt, err := chesslib.PGN(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	cg := chesslib.NewGame(opt)
	moves := cg.Moves()
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: game has no moves", ErrParse)
	}
	start := chesslib.StartingPosition().String()
	if positions := cg.Positions(); len(positions) > 0 && positions[0] != nil {
		start = positions[0].String()
	}
	tags := make(map[string]string)
	for _, k := range keptTags {
		if v := strings.TrimSpace(cg.GetTagPair(k)); v != "" {
			tags[k] = v
		}
	}
	return &Game{StartFEN: start, Moves: moves, Tags: tags}, nil
}

// ParseMoves plays uci moves from startFEN ("" for the standard start).
func ParseMoves(startFEN string, uci []string) (*Game, error) {
	if len(uci) == 0 {
		return nil, fmt.Errorf("%w: empty move list", ErrParse)
	}
	var opts []func(*chesslib.Game)
	if strings.TrimSpace(startFEN) != "" {
		opt, err := chesslib.FEN(startFEN)
		if err != nil {
			return nil, fmt.Errorf("%w: fen %q: %v", ErrParse, startFEN, err)
		}
		opts = append(opts, opt)
	}
	cg := chesslib.NewGame(opts...)
	start := cg.Position().String()
	for i, mv := range uci {
		if err := cg.PushNotationMove(strings.TrimSpace(mv), chesslib.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("%w: move %d %q: %v", ErrParse, i+1, mv, err)
		}
	}
	return &Game{StartFEN: start, Moves: cg.Moves(), Tags: map[string]string{}}, nil
}

// sameFENPrefix compares placement, turn, castling and en passant fields.
func sameFENPrefix(a, b string) bool {
	fa, fb := strings.Fields(a), strings.Fields(b)
	if len(fa) < 4 || len(fb) < 4 {
		return a == b
	}
	return strings.Join(fa[:4], " ") == strings.Join(fb[:4], " ")
}
