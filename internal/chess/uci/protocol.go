package uci

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Options are the engine settings fixed for the lifetime of a session.
// Analysis always runs at full strength.
type Options struct {
	Threads int
	HashMB  int
	MultiPV int
}

// Limits bound one search. At least one field must be positive.
type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

// Score is an engine score from the side to move's point of view.
// When IsMate is set, Mate is the signed move count and CP is meaningless;
// "mate 0" means the side to move is already mated.
type Score struct {
	CP     int
	Mate   int
	IsMate bool
}

// Candidate is the latest line reported for one multipv slot.
type Candidate struct {
	Move      string
	Score     Score
	Depth     int
	Principal []string
}

func validateOptions(opt Options) error {
	switch {
	case opt.Threads < 0:
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	case opt.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	case opt.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	}
	return nil
}

// optionCommands lists the setoption lines sent once after uciok.
func optionCommands(opt Options) []string {
	return []string{
		"setoption name Threads value " + strconv.Itoa(max(opt.Threads, 1)),
		"setoption name Hash value " + strconv.Itoa(opt.HashMB),
		"setoption name MultiPV value " + strconv.Itoa(opt.MultiPV),
		"setoption name UCI_LimitStrength value false",
	}
}

func buildPositionCommand(fen string, moves []string) string {
	fen = strings.TrimSpace(fen)
	cmd := "position startpos"
	if fen != "" && fen != "startpos" {
		cmd = "position fen " + fen
	}
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	return cmd + "\n"
}

func buildGoTokens(l Limits) ([]string, error) {
	tokens := []string{"go"}
	for _, lim := range []struct {
		name  string
		value int
	}{
		{"depth", l.Depth},
		{"movetime", l.MoveTimeMillis},
		{"nodes", l.NodeCap},
	} {
		if lim.value > 0 {
			tokens = append(tokens, lim.name, strconv.Itoa(lim.value))
		}
	}
	if len(tokens) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return tokens, nil
}

const (
	minSearchWait   = 6 * time.Second
	maxDepthWait    = 20 * time.Second
	perDepthWait    = 300 * time.Millisecond
	moveTimeSlackMS = 2000
)

// computeSearchTimeout is how long Search waits for bestmove before giving
// up on the engine.
func computeSearchTimeout(l Limits) time.Duration {
	switch {
	case l.MoveTimeMillis > 0:
		return 3 * time.Duration(l.MoveTimeMillis+moveTimeSlackMS) * time.Millisecond
	case l.Depth > 0:
		return min(max(time.Duration(l.Depth)*perDepthWait, minSearchWait), maxDepthWait)
	default:
		return minSearchWait
	}
}

// infoLine holds the fields of an "info" line that analysis cares about.
type infoLine struct {
	multipv  int
	depth    int
	score    Score
	hasScore bool
	pv       []string
}

func scanInfo(line string) infoLine {
	fields := strings.Fields(line)
	out := infoLine{multipv: 1}
	intAt := func(i int) (int, bool) {
		if i >= len(fields) {
			return 0, false
		}
		v, err := strconv.Atoi(fields[i])
		return v, err == nil
	}
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "multipv":
			if v, ok := intAt(i + 1); ok {
				out.multipv = v
			}
			i++
		case "depth":
			if v, ok := intAt(i + 1); ok {
				out.depth = v
			}
			i++
		case "score":
			if i+1 >= len(fields) {
				return out
			}
			v, ok := intAt(i + 2)
			if ok {
				switch fields[i+1] {
				case "cp":
					out.score, out.hasScore = Score{CP: v}, true
				case "mate":
					out.score, out.hasScore = Score{Mate: v, IsMate: true}, true
				}
			}
			i += 2
		case "pv":
			if i+1 < len(fields) {
				out.pv = slices.Clone(fields[i+1:])
			}
			return out
		case "string":
			return out
		}
	}
	return out
}

// parseInfo returns the multipv slot and candidate of an info line that
// carries a principal variation.
func parseInfo(line string) (int, Candidate, bool) {
	in := scanInfo(line)
	if len(in.pv) == 0 {
		return 0, Candidate{}, false
	}
	return in.multipv, Candidate{Move: in.pv[0], Score: in.score, Depth: in.depth, Principal: in.pv}, true
}

// parseTerminalInfo recognizes the pv-less score line an engine prints for a
// position with no legal moves.
func parseTerminalInfo(line string) (Score, bool) {
	in := scanInfo(line)
	return in.score, in.hasScore
}

func collapseCandidates(bySlot map[int]Candidate) []Candidate {
	if len(bySlot) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(bySlot))
	for _, slot := range slices.Sorted(maps.Keys(bySlot)) {
		out = append(out, bySlot[slot])
	}
	return out
}
