package review

import (
	"fmt"
	"strings"
)

// Label is the quality verdict for one move.
type Label int

const (
	Book Label = iota
	Best
	Brilliant
	Excellent
	Good
	Inaccuracy
	Mistake
	Blunder
	MatesIn
	ContinuesMateIn
	GetsMatedIn
	LostMate
)

var labelNames = [...]string{
	Book:            "book",
	Best:            "best",
	Brilliant:       "brilliant",
	Excellent:       "excellent",
	Good:            "good",
	Inaccuracy:      "inaccuracy",
	Mistake:         "mistake",
	Blunder:         "blunder",
	MatesIn:         "mates_in",
	ContinuesMateIn: "continues_mate_in",
	GetsMatedIn:     "gets_mated_in",
	LostMate:        "lost_mate",
}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("label(%d)", int(l))
	}
	return labelNames[l]
}

func (l Label) MarshalText() ([]byte, error) {
	if l < 0 || int(l) >= len(labelNames) {
		return nil, fmt.Errorf("unknown label %d", int(l))
	}
	return []byte(labelNames[l]), nil
}

func (l *Label) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	for i, name := range labelNames {
		if name == s {
			*l = Label(i)
			return nil
		}
	}
	return fmt.Errorf("unknown label %q", s)
}

// Favorable reports whether the label gets the favorable annotation order.
func (l Label) Favorable() bool {
	switch l {
	case Best, Brilliant, Excellent, Good:
		return true
	}
	return false
}

// NAG is the PGN numeric annotation glyph for the label, or "".
func (l Label) NAG() string {
	switch l {
	case Best, Excellent:
		return "$1"
	case Brilliant:
		return "$3"
	case Inaccuracy:
		return "$6"
	case Mistake:
		return "$2"
	case Blunder, LostMate:
		return "$4"
	}
	return ""
}

// Classification is a Label plus the mate distance for the mate labels.
type Classification struct {
	Label Label `json:"label"`
	N     int   `json:"n,omitempty"`
}

func (c Classification) HasMateDistance() bool {
	switch c.Label {
	case MatesIn, ContinuesMateIn, GetsMatedIn:
		return true
	}
	return false
}

func (c Classification) String() string {
	if c.HasMateDistance() {
		return fmt.Sprintf("%s %d", strings.ReplaceAll(c.Label.String(), "_", " "), c.N)
	}
	return strings.ReplaceAll(c.Label.String(), "_", " ")
}

// bandFor maps a centipawn gain from the mover's view onto a label.
func bandFor(gain int) Label {
	switch {
	case gain >= -20:
		return Excellent
	case gain >= -100:
		return Good
	case gain >= -250:
		return Inaccuracy
	case gain >= -450:
		return Mistake
	default:
		return Blunder
	}
}
