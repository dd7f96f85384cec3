// Package keys produces the candidate postal-code keys a sync run considers and
// computes the gap against what the cache already holds.
package keys

import (
	"fmt"
	"sort"

	"coveragesync/internal/validation"
)

// Source modes
const (
	ModeExhaustive = "exhaustive"
	ModeCurated    = "curated"
	ModeRanges     = "ranges"
)

// MaxKey is the largest numeric key in the 5-digit space.
const MaxKey = 99999

// Source produces a deduplicated, ordered list of candidate keys.
// Implementations do no I/O.
type Source interface {
	Name() string
	Keys() []string
}

// Format zero-pads n to a 5-digit key.
func Format(n int) string {
	return fmt.Sprintf("%05d", n)
}

// Exhaustive yields every key from 00000 to 99999.
type Exhaustive struct{}

// Name returns the source mode.
func (Exhaustive) Name() string { return ModeExhaustive }

// Keys returns all 100,000 keys in ascending order.
func (Exhaustive) Keys() []string {
	out := make([]string, 0, MaxKey+1)
	for i := 0; i <= MaxKey; i++ {
		out = append(out, Format(i))
	}
	return out
}

// Group is a labelled set of hand-picked keys, e.g. one metro area.
type Group struct {
	Name string   `yaml:"name"`
	Keys []string `yaml:"keys"`
}

// CuratedList yields explicit keys in the order they are listed.
type CuratedList struct {
	Groups []Group
}

// NewCuratedList validates every key in the groups.
func NewCuratedList(groups []Group) (*CuratedList, error) {
	for _, g := range groups {
		for _, k := range g.Keys {
			if !validation.ValidateKey(k) {
				return nil, fmt.Errorf("curated group %q: invalid key %q", g.Name, k)
			}
		}
	}
	return &CuratedList{Groups: groups}, nil
}

// Name returns the source mode.
func (c *CuratedList) Name() string { return ModeCurated }

// Keys returns the listed keys with duplicates removed, first occurrence wins.
func (c *CuratedList) Keys() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range c.Groups {
		for _, k := range g.Keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Range is an inclusive numeric key range with a human-readable label.
type Range struct {
	Name  string `yaml:"name"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

// Size returns the number of keys in the range.
func (r Range) Size() int {
	return r.End - r.Start + 1
}

// RangeList expands ranges plus special keys into a sorted, deduplicated list.
// Overlapping ranges are allowed; each key appears once.
type RangeList struct {
	Ranges  []Range
	Special []string
}

// NewRangeList validates range bounds and special keys.
func NewRangeList(ranges []Range, special []string) (*RangeList, error) {
	for _, r := range ranges {
		if r.Start < 0 || r.End > MaxKey || r.Start > r.End {
			return nil, fmt.Errorf("range %q: invalid bounds [%d, %d]", r.Name, r.Start, r.End)
		}
	}
	for _, k := range special {
		if !validation.ValidateKey(k) {
			return nil, fmt.Errorf("invalid special key %q", k)
		}
	}
	return &RangeList{Ranges: ranges, Special: special}, nil
}

// Name returns the source mode.
func (r *RangeList) Name() string { return ModeRanges }

// Keys returns the expanded keys in ascending order.
func (r *RangeList) Keys() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for _, rg := range r.Ranges {
		for i := rg.Start; i <= rg.End; i++ {
			add(Format(i))
		}
	}
	for _, k := range r.Special {
		add(k)
	}

	sort.Strings(out)
	return out
}

// File is the optional YAML key-source file. Empty sections fall back to the built-in lists.
type File struct {
	Curated []Group  `yaml:"curated"`
	Ranges  []Range  `yaml:"ranges"`
	Special []string `yaml:"special"`
}

// New builds the source for a mode. file may be nil.
func New(mode string, file *File) (Source, error) {
	if file == nil {
		file = &File{}
	}

	switch mode {
	case ModeExhaustive:
		return Exhaustive{}, nil
	case ModeCurated:
		groups := file.Curated
		if len(groups) == 0 {
			groups = DefaultCurated
		}
		return NewCuratedList(groups)
	case ModeRanges:
		ranges, special := file.Ranges, file.Special
		if len(ranges) == 0 {
			ranges = DefaultRanges
		}
		if special == nil {
			special = DefaultSpecial
		}
		return NewRangeList(ranges, special)
	default:
		return nil, fmt.Errorf("unknown key source mode %q", mode)
	}
}
