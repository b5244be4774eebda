package clears

import (
	"sort"
	"strings"
)

// CellKey identifies one cell of the clear grid.
type CellKey struct {
	Player string
	Map    string
}

// Snapshot maps a cell to its trimmed, non-empty text. A missing key means
// no recorded clear.
type Snapshot map[CellKey]string

// Keys returns the snapshot's keys sorted by player, then map.
func (s Snapshot) Keys() []CellKey {
	keys := make([]CellKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func sortKeys(keys []CellKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Player != keys[j].Player {
			return keys[i].Player < keys[j].Player
		}
		return keys[i].Map < keys[j].Map
	})
}

// Layout describes where data lives in the clears sheet.
type Layout struct {
	// MinPlayerCol is the first column holding a player; columns before it
	// are row metadata.
	MinPlayerCol int `yaml:"min_player_col"`
	// FirstMapRow is the index of the first row that can hold a map.
	FirstMapRow int `yaml:"first_map_row"`
	// MaxTier is the difficulty tier of the first map block. Each pair of
	// consecutive empty map-name rows lowers the tier by one.
	MaxTier int `yaml:"max_tier"`
	// IgnorePrefixes marks summary and decoration rows.
	IgnorePrefixes []string `yaml:"ignore_prefixes"`
}

// DefaultLayout returns the layout of the production clears sheet.
func DefaultLayout() Layout {
	return Layout{
		MinPlayerCol: 4,
		FirstMapRow:  9,
		MaxTier:      8,
		IgnorePrefixes: []string{
			"# of Challenges / People / Clears",
			"⭐⭐⭐⭐⭐",
		},
	}
}

// Current is a snapshot built from the clears sheet together with the
// difficulty tier of every map row seen.
type Current struct {
	Cells      Snapshot
	Difficulty map[string]int
}

// BuildSnapshot reads the clears sheet. Row 0 holds player names; rows from
// layout.FirstMapRow hold maps. A grid with no header, or a header shorter
// than layout.MinPlayerCol, is an *ErrStructure.
func BuildSnapshot(grid [][]string, layout Layout) (*Current, error) {
	if len(grid) < 1 || len(grid[0]) < layout.MinPlayerCol {
		cols := 0
		if len(grid) > 0 {
			cols = len(grid[0])
		}
		return nil, &ErrStructure{Source: "clears sheet", Rows: len(grid), Cols: cols}
	}

	players := grid[0]
	cur := &Current{
		Cells:      make(Snapshot),
		Difficulty: make(map[string]int),
	}
	tier := layout.MaxTier
	previousEmpty := false

	for i := layout.FirstMapRow; i < len(grid); i++ {
		row := grid[i]
		if len(row) == 0 {
			continue
		}
		mapName := row[0]
		if hasAnyPrefix(mapName, layout.IgnorePrefixes) {
			continue
		}

		// Two empty map names in a row start the next tier down.
		if mapName == "" {
			if previousEmpty {
				tier--
				previousEmpty = false
			} else {
				previousEmpty = true
			}
			continue
		}

		previousEmpty = false
		cur.Difficulty[mapName] = tier
		parseDataRow(row, layout.MinPlayerCol, players, cur.Cells)
	}
	return cur, nil
}

// parseDataRow copies the non-empty player cells of one map row into snap.
func parseDataRow(row []string, firstPlayerCol int, players []string, snap Snapshot) {
	mapName := row[0]
	for col := firstPlayerCol; col < len(row) && col < len(players); col++ {
		player := strings.TrimSpace(players[col])
		if player == "" {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			snap[CellKey{Player: player, Map: mapName}] = v
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
