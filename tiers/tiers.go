// Package tiers resolves a map's tier labels from the tier page of the
// clears spreadsheet. The page is read once per Lookup and never refreshed,
// so one run always decorates messages from one consistent source.
package tiers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/hazyhaar/clearwatch/clears"
)

// Labels that are not numeric tiers.
const (
	Undetermined = "Undetermined"
	Untiered     = "Untiered"
)

// ErrNotPopulated is returned by Get before Populate has succeeded.
var ErrNotPopulated = errors.New("tiers: lookup not populated")

// Loader fetches the raw tier page.
type Loader func(ctx context.Context) ([][]string, error)

// Layout describes the tier page: from FirstRow on, each row holds MaxTier
// groups of ColsPerTier columns, and each group starts at NameOffset with
// [map name, base tier, full-clear tier].
type Layout struct {
	FirstRow    int `yaml:"first_row"`
	MaxTier     int `yaml:"max_tier"`
	ColsPerTier int `yaml:"cols_per_tier"`
	NameOffset  int `yaml:"name_offset"`
}

// DefaultLayout returns the layout of the production tier page.
func DefaultLayout() Layout {
	return Layout{FirstRow: 9, MaxTier: 8, ColsPerTier: 4, NameOffset: 1}
}

// Entry holds the tier labels of one trimmed map name. Empty means unknown.
type Entry struct {
	Base      string `json:"base"`
	FullClear string `json:"full_clear"`
}

// Lookup is a read-through cache over the tier page.
type Lookup struct {
	load   Loader
	layout Layout

	once    sync.Once
	err     error
	entries map[string]Entry
}

// New creates a Lookup. Nothing is loaded until Populate or Get is called.
func New(load Loader, layout Layout) *Lookup {
	return &Lookup{load: load, layout: layout}
}

// Populate loads and parses the tier page on first use. Later calls return
// the outcome of the first one.
func (l *Lookup) Populate(ctx context.Context) error {
	l.once.Do(func() {
		rows, err := l.load(ctx)
		if err != nil {
			l.err = err
			return
		}
		l.entries = Parse(rows, l.layout)
	})
	return l.err
}

// Get returns the labels for a trimmed map name.
func (l *Lookup) Get(ctx context.Context, name string) (Entry, bool, error) {
	if err := l.Populate(ctx); err != nil {
		return Entry{}, false, err
	}
	if l.entries == nil {
		return Entry{}, false, ErrNotPopulated
	}
	e, ok := l.entries[name]
	return e, ok, nil
}

// Label picks the label matching a clear: the full-clear label for full
// clears, the base label otherwise. It returns "" when nothing is known or
// the lookup cannot be populated.
func (l *Lookup) Label(ctx context.Context, name string, fullClear bool) string {
	if l == nil {
		return ""
	}
	e, ok, err := l.Get(ctx, name)
	if err != nil || !ok {
		return ""
	}
	if fullClear {
		return e.FullClear
	}
	return e.Base
}

// Parse builds the trimmed-name index from a raw tier page.
func Parse(rows [][]string, layout Layout) map[string]Entry {
	entries := make(map[string]Entry)
	for r := layout.FirstRow; r < len(rows); r++ {
		row := rows[r]
		for i := 0; i < layout.MaxTier; i++ {
			start := layout.ColsPerTier*i + layout.NameOffset
			name, base, fc := cell(row, start), cell(row, start+1), cell(row, start+2)
			if name == "" {
				continue
			}

			label := clears.SplitMapLabel(name)
			if label.Suffix == clears.SuffixFullClear {
				base, fc = "", base
			} else if fc == "" || fc == "<<<" {
				fc = base
			}

			e := entries[label.Name]
			e.Base = merge(e.Base, base)
			e.FullClear = merge(e.FullClear, fc)
			entries[label.Name] = e
		}
	}
	return entries
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// merge keeps the first valid label unless a later one names a higher tier.
func merge(current, next string) string {
	if !valid(next) {
		return current
	}
	if current == "" {
		return next
	}
	if current != next && number(current) < number(next) {
		return next
	}
	return current
}

func valid(label string) bool {
	return strings.HasPrefix(label, "Tier") || label == Undetermined || label == Untiered
}

// number extracts N from "Tier N"; non-numeric labels rank as 0.
func number(label string) int {
	if !strings.HasPrefix(label, "Tier") {
		return 0
	}
	i := strings.LastIndex(label, " ")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(label[i+1:])
	if err != nil {
		return 0
	}
	return n
}
