package clears

import "sort"

type groupKey struct {
	player string
	name   string
}

// Consolidate groups raw clear events by player and trimmed map name and
// merges the pair produced by a single fresh full clear: a base-row event
// that is added or changed, plus an added full-clear-row event, becomes one
// AddedClear carrying the full-clear row's value. Everything else passes
// through unchanged apart from the map being renamed to its trimmed form.
// Entity-level events in raw are ignored.
func Consolidate(raw []Event) []Event {
	groups := make(map[groupKey][]Event)
	for _, e := range raw {
		ref, ok := clearRef(e)
		if !ok {
			continue
		}
		k := groupKey{player: ref.Player, name: SplitMapLabel(ref.Map).Name}
		groups[k] = append(groups[k], e)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].player != keys[j].player {
			return keys[i].player < keys[j].player
		}
		return keys[i].name < keys[j].name
	})

	var out []Event
	for _, k := range keys {
		entries := groups[k]
		if merged, ok := mergeFullClear(entries, k.name); ok {
			out = append(out, merged)
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, _ := clearRef(entries[i])
			b, _ := clearRef(entries[j])
			return a.Suffix < b.Suffix
		})
		for _, e := range entries {
			out = append(out, withMap(e, k.name))
		}
	}
	return out
}

// mergeFullClear applies the base-row + full-clear-row merge rule to a group.
func mergeFullClear(entries []Event, name string) (Event, bool) {
	if len(entries) != 2 {
		return nil, false
	}
	a, _ := clearRef(entries[0])
	b, _ := clearRef(entries[1])

	var base, full Event
	switch {
	case a.Suffix == SuffixClear && b.Suffix == SuffixFullClear:
		base, full = entries[0], entries[1]
	case a.Suffix == SuffixFullClear && b.Suffix == SuffixClear:
		base, full = entries[1], entries[0]
	default:
		return nil, false
	}

	fc, ok := full.(AddedClear)
	if !ok {
		return nil, false
	}
	switch base.(type) {
	case AddedClear, ChangedClear:
	default:
		return nil, false
	}

	ref, _ := clearRef(base)
	ref.Map = name
	ref.Suffix = SuffixFullClear
	return AddedClear{ClearRef: ref, Value: fc.Value}, true
}
