package clears

import (
	"sort"
	"strings"
)

// MinStateRows is the smallest non-empty state grid: a header and one map.
const MinStateRows = 2

// StateGrid serialises a snapshot into the state sheet shape: the header is
// "" followed by the sorted player names, then one row per sorted map name.
// The grid is rebuilt from scratch, never patched.
func StateGrid(s Snapshot) [][]string {
	playerSet := make(map[string]struct{})
	mapSet := make(map[string]struct{})
	for k := range s {
		playerSet[k.Player] = struct{}{}
		mapSet[k.Map] = struct{}{}
	}
	players := sortedSet(playerSet)
	maps := sortedSet(mapSet)

	col := make(map[string]int, len(players))
	for i, p := range players {
		col[p] = i + 1
	}
	row := make(map[string]int, len(maps))
	for i, m := range maps {
		row[m] = i + 1
	}

	grid := make([][]string, 0, len(maps)+1)
	grid = append(grid, append([]string{""}, players...))
	for _, m := range maps {
		r := make([]string, len(players)+1)
		r[0] = m
		grid = append(grid, r)
	}
	for k, v := range s {
		grid[row[k.Map]][col[k.Player]] = v
	}
	return grid
}

// ParseStateGrid reads a grid written by StateGrid. An empty grid is an
// empty snapshot; a grid with a header but no map rows is an *ErrStructure.
func ParseStateGrid(grid [][]string) (Snapshot, error) {
	snap := make(Snapshot)
	if len(grid) == 0 {
		return snap, nil
	}
	if len(grid) < MinStateRows {
		return nil, &ErrStructure{Source: "state sheet", Rows: len(grid), Cols: len(grid[0])}
	}

	players := grid[0]
	for _, r := range grid[1:] {
		if len(r) == 0 || strings.TrimSpace(r[0]) == "" {
			continue
		}
		parseDataRow(r, 1, players, snap)
	}
	return snap, nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
