package review

import (
	"strings"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/chess/motif"
	"github.com/park285/cheese-review/internal/msgcat"
)

// joinList renders "a", "a and b" or "a, b, and c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

func pieceList(ts []motif.Target) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Kind.String()
	}
	return joinList(names)
}

func squareList(ts []motif.Target) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Square.String()
	}
	return joinList(names)
}

func sideName(c chesslib.Color) string {
	if c == chesslib.White {
		return "White"
	}
	return "Black"
}

// note accumulates rendered sentences. The first render error sticks and
// later adds are ignored.
type note struct {
	cat   *msgcat.Catalog
	parts []string
	err   error
}

func (n *note) add(key string, data map[string]any) {
	if n.err != nil {
		return
	}
	s, err := n.cat.Render(key, data)
	if err != nil {
		n.err = err
		return
	}
	n.parts = append(n.parts, s)
}

func (n *note) String() string { return strings.Join(n.parts, " ") }
