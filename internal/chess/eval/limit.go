package eval

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidLimit is returned for a Limit that bounds nothing.
var ErrInvalidLimit = errors.New("eval: search limit must set depth, movetime or nodes")

// Limit bounds one engine search. It travels with every analysis request;
// there is no process-wide default.
type Limit struct {
	Depth    int           `json:"depth,omitempty" yaml:"depth"`
	MoveTime time.Duration `json:"movetime,omitempty" yaml:"movetime"`
	Nodes    int           `json:"nodes,omitempty" yaml:"nodes"`
}

func (l Limit) Validate() error {
	if l.Depth < 0 || l.MoveTime < 0 || l.Nodes < 0 {
		return fmt.Errorf("%w: negative bound %s", ErrInvalidLimit, l.Key())
	}
	if l.Depth == 0 && l.MoveTime == 0 && l.Nodes == 0 {
		return ErrInvalidLimit
	}
	return nil
}

// Key identifies the limit in cache keys, e.g. "d14" or "t100ms-n50000".
func (l Limit) Key() string {
	var parts []string
	if l.Depth > 0 {
		parts = append(parts, fmt.Sprintf("d%d", l.Depth))
	}
	if l.MoveTime > 0 {
		parts = append(parts, fmt.Sprintf("t%dms", l.MoveTime.Milliseconds()))
	}
	if l.Nodes > 0 {
		parts = append(parts, fmt.Sprintf("n%d", l.Nodes))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "-")
}

func (l Limit) String() string { return l.Key() }
