package clears

import "strings"

// Suffix tags found at the end of map row labels.
const (
	SuffixClear     = "[C]"
	SuffixFullClear = "[FC]"
)

// MapLabel is a map row label split into its trimmed name and suffix tag.
type MapLabel struct {
	Name   string
	Suffix string
}

// SplitMapLabel strips the author clause and the trailing bracket group from
// a raw map label. Labels without a bracket group get SuffixClear.
//
//	SplitMapLabel("Summit [FC]\nby someone") // {Name: "Summit", Suffix: "[FC]"}
func SplitMapLabel(raw string) MapLabel {
	s := strings.ReplaceAll(raw, "\n", " ")
	s = strings.ReplaceAll(s, "  ", " ")
	if i := strings.Index(s, " by "); i >= 0 {
		s = s[:i]
	}

	label := MapLabel{Name: s, Suffix: SuffixClear}
	if strings.HasSuffix(s, "]") {
		if i := strings.LastIndex(s, "["); i >= 0 {
			label.Suffix = s[i:]
			label.Name = strings.TrimRight(s[:i], " ")
		}
	}
	return label
}
