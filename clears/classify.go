// Package clears is the reconciliation engine of clearwatch. It turns raw
// clear-sheet grids into snapshots, detects renamed players and maps, and
// computes the consolidated list of events worth notifying about.
//
//	old, _ := clears.ParseStateGrid(stateGrid)
//	cur, err := clears.BuildSnapshot(sheetGrid, clears.DefaultLayout())
//	events := clears.Compute(old, cur.Cells, cur.Difficulty)
//
// Every function in the package is pure: inputs are never mutated and the
// same inputs always yield the same events in the same order.
package clears

import (
	"fmt"
	"strings"
)

// ClearType is the canonical classification of a cell's free text.
type ClearType int

const (
	Other ClearType = iota
	NoVideo
	Video
	NoVideoFC
	VideoFC
	VideoAndFC
	Golden
	GoldenFC
	GoldenAndFC
	AllSilvers
	AllSilversAndFC
	Creator
	CreatorFC
)

var clearTypeNames = [...]string{
	Other:           "other",
	NoVideo:         "no_video",
	Video:           "video",
	NoVideoFC:       "no_video_fc",
	VideoFC:         "video_fc",
	VideoAndFC:      "video_and_fc",
	Golden:          "golden",
	GoldenFC:        "golden_fc",
	GoldenAndFC:     "golden_and_fc",
	AllSilvers:      "all_silvers",
	AllSilversAndFC: "all_silvers_and_fc",
	Creator:         "creator",
	CreatorFC:       "creator_fc",
}

func (c ClearType) String() string {
	if c < 0 || int(c) >= len(clearTypeNames) {
		return fmt.Sprintf("clear_type(%d)", int(c))
	}
	return clearTypeNames[c]
}

// IsFullClear reports whether the classification includes a full clear.
func (c ClearType) IsFullClear() bool {
	switch c {
	case NoVideoFC, VideoFC, VideoAndFC, GoldenFC, GoldenAndFC, AllSilversAndFC, CreatorFC:
		return true
	}
	return false
}

// Recognized is false only for Other.
func (c ClearType) Recognized() bool { return c != Other }

// isRepeatedAndNumbered reports whether val is "p1 p2 p3 ..." for pattern p,
// with at least two tokens. Patterns must not contain spaces.
func isRepeatedAndNumbered(val, pattern string) bool {
	parts := strings.Split(val, " ")
	if len(parts) < 2 {
		return false
	}
	for i, part := range parts {
		if part != fmt.Sprintf("%s%d", pattern, i+1) {
			return false
		}
	}
	return true
}

func isOrRepeated(val, pattern string) bool {
	return val == pattern || isRepeatedAndNumbered(val, pattern)
}

// Classify maps a cell's text to its ClearType. Rules are tried in order and
// the first match wins; unrecognised text is Other, never an error.
func Classify(cell string) ClearType {
	val := strings.ToLower(strings.TrimSpace(cell))

	switch {
	case val == "nv fc":
		return NoVideoFC
	case val == "nv":
		return NoVideo
	case isOrRepeated(val, "v"):
		return Video
	case isOrRepeated(val, "fc"):
		return VideoFC
	case val == "v fc":
		return VideoAndFC
	case val == "g":
		return Golden
	case val == "fcg":
		return GoldenFC
	case val == "g & fc":
		return GoldenAndFC
	case isOrRepeated(val, "s"):
		return AllSilvers
	case strings.HasSuffix(val, " & fc") && isOrRepeated(strings.TrimSuffix(val, " & fc"), "s"):
		return AllSilversAndFC
	case val == "creator":
		return Creator
	case val == "creator [fc]":
		return CreatorFC
	}
	return Other
}

// ClassifyInRow classifies a cell that sits on a map row carrying the given
// suffix tag. On a full-clear row the bare base markers already mean a full
// clear, so they are promoted to their FC variant.
func ClassifyInRow(cell, suffix string) ClearType {
	ct := Classify(cell)
	if suffix != SuffixFullClear {
		return ct
	}
	switch ct {
	case NoVideo:
		return NoVideoFC
	case Video:
		return VideoFC
	case Creator:
		return CreatorFC
	}
	return ct
}
