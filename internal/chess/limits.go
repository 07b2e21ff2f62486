package chess

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/uci"
)

func BuildGoCommand(l eval.Limit) ([]string, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	sl := searchLimits(l)

	args := []string{"go"}
	if sl.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(sl.Depth))
	}
	if sl.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(sl.MoveTimeMillis))
	}
	if sl.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(sl.NodeCap))
	}

	if len(args) == 1 {
		return nil, fmt.Errorf("limit %s does not define search bounds", l)
	}
	return args, nil
}

func FormatGoCommand(l eval.Limit) (string, error) {
	args, err := BuildGoCommand(l)
	if err != nil {
		return "", err
	}
	return strings.Join(args, " "), nil
}

// searchLimits converts a Limit to protocol units. Sub-millisecond move
// times round up so they are never dropped.
func searchLimits(l eval.Limit) uci.Limits {
	ms := int(l.MoveTime / time.Millisecond)
	if l.MoveTime > 0 && l.MoveTime%time.Millisecond != 0 {
		ms++
	}
	return uci.Limits{
		Depth:          l.Depth,
		MoveTimeMillis: ms,
		NodeCap:        l.Nodes,
	}
}
