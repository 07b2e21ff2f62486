package chess

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-review/internal/chess/eval"
	"github.com/park285/cheese-review/internal/chess/uci"
)

// ErrUnknownPreset is returned by GetPreset for a name with no registration.
var ErrUnknownPreset = errors.New("unknown analysis preset")

// AnalysisPreset bundles a search limit with the engine settings it is meant
// to run under. Reviews always run the engine at full strength.
type AnalysisPreset struct {
	Name    string
	Limit   eval.Limit
	Threads int
	HashMB  int
}

const (
	defaultThreads = 2
	defaultHashMB  = 64
)

var presetMu sync.RWMutex

var DefaultPresets = map[string]AnalysisPreset{
	"fast": {
		Name:    "fast",
		Limit:   eval.Limit{MoveTime: 100 * time.Millisecond},
		Threads: defaultThreads,
		HashMB:  defaultHashMB,
	},
	"standard": {
		Name:    "standard",
		Limit:   eval.Limit{Depth: 14},
		Threads: defaultThreads,
		HashMB:  defaultHashMB,
	},
	"deep": {
		Name:    "deep",
		Limit:   eval.Limit{Depth: 20},
		Threads: defaultThreads,
		HashMB:  256,
	},
}

// GetPreset resolves a preset by name. An empty name means "standard".
func GetPreset(name string) (AnalysisPreset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		name = "standard"
	case "quick", "blitz":
		name = "fast"
	case "thorough":
		name = "deep"
	default:
		name = strings.ToLower(strings.TrimSpace(name))
	}
	presetMu.RLock()
	p, ok := DefaultPresets[name]
	presetMu.RUnlock()
	if ok {
		return p, nil
	}
	return AnalysisPreset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
}

// PresetNames lists the registered presets in name order.
func PresetNames() []string {
	presetMu.RLock()
	defer presetMu.RUnlock()
	names := make([]string, 0, len(DefaultPresets))
	for name := range DefaultPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetPreset registers or replaces a preset after validating it.
func SetPreset(p AnalysisPreset) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.Name == "" {
		return fmt.Errorf("preset name required")
	}
	if err := ValidatePreset(p); err != nil {
		return err
	}
	presetMu.Lock()
	DefaultPresets[p.Name] = p
	presetMu.Unlock()
	return nil
}

// WithOverrides replaces each limit field that is set in o. Setting any
// field drops the preset's other bounds so "-depth 18" on a movetime
// preset does not also keep the time cap.
func (p AnalysisPreset) WithOverrides(o eval.Limit) AnalysisPreset {
	if o.Depth == 0 && o.MoveTime == 0 && o.Nodes == 0 {
		return p
	}
	p.Limit = o
	return p
}

// Options returns the engine settings for sessions running this preset.
func (p AnalysisPreset) Options() uci.Options {
	threads := p.Threads
	if threads <= 0 {
		threads = defaultThreads
	}
	hash := p.HashMB
	if hash <= 0 {
		hash = defaultHashMB
	}
	return uci.Options{Threads: threads, HashMB: hash, MultiPV: 1}
}

func ValidatePreset(p AnalysisPreset) error {
	switch {
	case p.Threads < 0:
		return fmt.Errorf("threads must be >= 0: %d", p.Threads)
	case p.HashMB < 0:
		return fmt.Errorf("hash size must be >= 0: %d", p.HashMB)
	}
	if err := p.Limit.Validate(); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return nil
}
