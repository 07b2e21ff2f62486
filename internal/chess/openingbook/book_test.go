package openingbook

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	chesslib "github.com/corentings/chess/v2"
)

func playUCI(t *testing.T, moves ...string) []*chesslib.Move {
	t.Helper()
	game := chesslib.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
	}
	return game.Moves()
}

func TestBookMoveFollowsECOTree(t *testing.T) {
	b, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	moves := playUCI(t, "e2e4", "e7e5", "d1h5", "e8e7")

	first, ok := b.BookMove(moves, 0, chesslib.StartingPosition().String())
	if !ok || first.Name == "" || first.Code == "" {
		t.Fatalf("1.e4 not book: %+v %v", first, ok)
	}
	if _, ok := b.BookMove(moves, 3, ""); ok {
		t.Fatalf("...Ke7 treated as book")
	}

	deepest, ok := b.Name(moves)
	if !ok {
		t.Fatalf("no opening named for %v", moves)
	}
	beforeKing, _ := b.Name(moves[:3])
	if deepest != beforeKing {
		t.Fatalf("leaving book changed the name: %v vs %v", deepest, beforeKing)
	}
}

func TestBookMoveHonoursPlyWindow(t *testing.T) {
	b, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	moves := playUCI(t,
		"e2e4", "c7c5", "g1f3", "d7d6", "d2d4", "c5d4", "f3d4", "g8f6", "b1c3", "a7a6", "c1e3", "e7e5")
	if _, ok := b.BookMove(moves, BookPlies, ""); ok {
		t.Fatalf("ply %d labelled book", BookPlies)
	}
	if _, ok := b.BookMove(moves, -1, ""); ok {
		t.Fatalf("negative ply labelled book")
	}
	var nilBook *Book
	if _, ok := nilBook.BookMove(moves, 0, ""); ok {
		t.Fatalf("nil book labelled a move")
	}
}

func TestNewWithMissingPolyglot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.bin"))
	if !errors.Is(err, ErrBookUnavailable) {
		t.Fatalf("err = %v, want ErrBookUnavailable", err)
	}
}

func TestResolveBookPath(t *testing.T) {
	if _, err := ResolveBookPath(filepath.Join(t.TempDir(), "nope.bin")); !errors.Is(err, ErrBookUnavailable) {
		t.Fatalf("missing configured path err = %v", err)
	}
	got, err := ResolveBookPath("")
	if err != nil || got != "" {
		t.Fatalf("no configured path = %q, %v", got, err)
	}
}

func TestNormalizeCastle(t *testing.T) {
	if got := normalizeCastle("e1h1"); got != "e1g1" {
		t.Fatalf("e1h1 -> %s", got)
	}
	if got := normalizeCastle("e2e4"); got != "e2e4" {
		t.Fatalf("e2e4 -> %s", got)
	}
}

// writePolyglot stores one entry per (fen, move) pair in a temporary book file.
func writePolyglot(t *testing.T, entries map[string]uint16) string {
	t.Helper()
	hasher := chesslib.NewZobristHasher()
	var data []byte
	for fen, mv := range entries {
		hash, err := hasher.HashPosition(fen)
		if err != nil {
			t.Fatalf("hash %s: %v", fen, err)
		}
		entry := make([]byte, 16)
		binary.BigEndian.PutUint64(entry[0:8], chesslib.ZobristHashToUint64(hash))
		binary.BigEndian.PutUint16(entry[8:10], mv)
		binary.BigEndian.PutUint16(entry[10:12], 1)
		data = append(data, entry...)
	}
	path := filepath.Join(t.TempDir(), "book.bin")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write book: %v", err)
	}
	return path
}

func TestPolyglotMembership(t *testing.T) {
	const (
		start  = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
		castle = "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"
	)
	// e2e4 and e1h1, the king-takes-rook form of white short castling.
	path := writePolyglot(t, map[string]uint16{
		start:  4 | 3<<3 | 4<<6 | 1<<9,
		castle: 7 | 4<<6,
	})
	b, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !b.HasPolyglot() {
		t.Fatalf("polyglot book not loaded")
	}

	cases := []struct {
		fen  string
		move string
		want bool
	}{
		{start, "e2e4", true},
		{start, "d2d4", false},
		{castle, "e1g1", true},
		{castle, "e1c1", false},
	}
	for _, tc := range cases {
		opt, err := chesslib.FEN(tc.fen)
		if err != nil {
			t.Fatalf("FEN: %v", err)
		}
		game := chesslib.NewGame(opt)
		if err := game.PushNotationMove(tc.move, chesslib.UCINotation{}, nil); err != nil {
			t.Fatalf("apply %s: %v", tc.move, err)
		}
		moves := game.Moves()
		if got := b.inPolyglot(tc.fen, moves[len(moves)-1]); got != tc.want {
			t.Fatalf("inPolyglot(%s, %s) = %v, want %v", tc.fen, tc.move, got, tc.want)
		}
	}
}
