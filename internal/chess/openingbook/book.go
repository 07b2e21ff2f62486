// Package openingbook names openings from the ECO tree and, when a Polyglot
// file is configured, answers book-move membership for review labelling.
package openingbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// BookPlies is how deep into a game a move can still be labelled Book.
const BookPlies = 10

// ErrBookUnavailable is returned when a configured Polyglot file cannot be read.
var ErrBookUnavailable = errors.New("openingbook: polyglot book unavailable")

var (
	ecoOnce sync.Once
	ecoBook opening.Book
)

// ECO returns the process-wide ECO tree. Building it parses a large embedded
// table, so it happens once.
func ECO() opening.Book {
	ecoOnce.Do(func() {
		ecoBook = opening.NewBookECO()
	})
	return ecoBook
}

type Opening struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (o Opening) String() string {
	if o.Code == "" {
		return o.Name
	}
	return o.Code + " " + o.Name
}

// Book combines ECO naming with optional Polyglot membership.
type Book struct {
	eco  opening.Book
	poly *chesslib.PolyglotBook
}

// New builds a Book. An empty polyglotPath disables Polyglot membership.
func New(polyglotPath string) (*Book, error) {
	b := &Book{eco: ECO()}
	if strings.TrimSpace(polyglotPath) == "" {
		return b, nil
	}
	poly, err := LoadFromPath(polyglotPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBookUnavailable, err)
	}
	b.poly = poly
	return b, nil
}

func (b *Book) HasPolyglot() bool { return b != nil && b.poly != nil }

// Name returns the deepest ECO opening the move sequence reaches.
func (b *Book) Name(moves []*chesslib.Move) (Opening, bool) {
	if b == nil || b.eco == nil {
		return Opening{}, false
	}
	o := b.eco.Find(moves)
	if o == nil {
		return Opening{}, false
	}
	return Opening{Code: o.Code(), Name: o.Title()}, true
}

// BookMove reports whether moves[ply] is a book move and, if so, the opening
// to name in its annotation. A move is book when it reaches a new named ECO
// node, or when the Polyglot book lists it for the position before it
// (preFEN). Only the first BookPlies plies qualify.
func (b *Book) BookMove(moves []*chesslib.Move, ply int, preFEN string) (Opening, bool) {
	if b == nil || ply < 0 || ply >= BookPlies || ply >= len(moves) {
		return Opening{}, false
	}
	if b.eco != nil {
		cur := b.eco.Find(moves[:ply+1])
		if cur != nil && cur != b.eco.Find(moves[:ply]) {
			return Opening{Code: cur.Code(), Name: cur.Title()}, true
		}
	}
	if b.poly != nil && b.inPolyglot(preFEN, moves[ply]) {
		name, _ := b.Name(moves[:ply+1])
		return name, true
	}
	return Opening{}, false
}

func (b *Book) inPolyglot(fen string, m *chesslib.Move) bool {
	hasher := chesslib.NewZobristHasher()
	hashStr, err := hasher.HashPosition(fen)
	if err != nil {
		return false
	}
	entries := b.poly.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	played := m.String()
	for _, entry := range entries {
		mv := chesslib.DecodeMove(entry.Move).ToMove()
		if normalizeCastle(mv.String()) == played {
			return true
		}
	}
	return false
}

// normalizeCastle maps Polyglot's king-takes-rook castling to UCI form.
func normalizeCastle(uci string) string {
	switch uci {
	case "e1h1":
		return "e1g1"
	case "e1a1":
		return "e1c1"
	case "e8h8":
		return "e8g8"
	case "e8a8":
		return "e8c8"
	}
	return uci
}

// ResolveBookPath returns configured when it is set (the file must exist),
// otherwise the first default location present, otherwise "".
func ResolveBookPath(configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		if !exists(configured) {
			return "", fmt.Errorf("%w: %s does not exist", ErrBookUnavailable, configured)
		}
		return configured, nil
	}
	for _, candidate := range defaultBookPaths() {
		if exists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func defaultBookPaths() []string {
	return []string{
		filepath.Join("resources", "opening", "book.bin"),
		filepath.Join("resources", "opening", "Cerebellum3Merge.bin"),
	}
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func LoadFromPath(bookPath string) (*chesslib.PolyglotBook, error) {
	if strings.TrimSpace(bookPath) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(bookPath)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", bookPath, err)
	}
	defer file.Close()

	book, err := chesslib.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", bookPath, err)
	}
	return book, nil
}
