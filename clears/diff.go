package clears

// DiffSnapshots compares every cell of the two snapshots and returns the raw
// clear-level events, keyed by the current names and raw map labels. Cells
// of renamed entities are read back under their old names; cells of removed
// entities produce nothing (the entity event covers them).
func DiffSnapshots(old, cur Snapshot, players, maps Reconciliation, difficulty map[string]int) []Event {
	renamedFromPlayer := oldNameSet(players)
	renamedFromMap := oldNameSet(maps)
	removedPlayer := nameSet(players.Removed)
	removedMap := nameSet(maps.Removed)

	union := make(Snapshot, len(old)+len(cur))
	for k := range old {
		union[k] = ""
	}
	for k := range cur {
		union[k] = ""
	}

	var events []Event
	for _, key := range union.Keys() {
		if renamedFromPlayer[key.Player] || renamedFromMap[key.Map] {
			continue
		}
		if removedPlayer[key.Player] || removedMap[key.Map] {
			continue
		}

		oldKey := CellKey{Player: players.OldName(key.Player), Map: maps.OldName(key.Map)}
		newVal := cur[key]
		oldVal := old[oldKey]

		ref := ClearRef{
			Player:     key.Player,
			Map:        key.Map,
			Suffix:     SplitMapLabel(key.Map).Suffix,
			Difficulty: difficulty[key.Map],
		}

		switch {
		case newVal != "" && oldVal == "":
			events = append(events, AddedClear{ClearRef: ref, Value: newVal})
		case newVal == "" && oldVal != "":
			events = append(events, RemovedClear{ClearRef: ref, OldValue: oldVal})
		case newVal != oldVal:
			events = append(events, ChangedClear{ClearRef: ref, OldValue: oldVal, NewValue: newVal})
		}
	}
	return events
}

func oldNameSet(r Reconciliation) map[string]bool {
	set := make(map[string]bool, len(r.Renamed))
	for _, old := range r.Renamed {
		set[old] = true
	}
	return set
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// EntityEvents lists the player events followed by the map events. Each
// group is ordered added, removed, renamed, and sorted by name within.
func EntityEvents(players, maps Reconciliation, difficulty map[string]int) []Event {
	var events []Event
	for _, name := range players.Added {
		events = append(events, AddedPlayer{Name: name})
	}
	for _, name := range players.Removed {
		events = append(events, RemovedPlayer{Name: name})
	}
	for _, name := range sortedKeys(players.Renamed) {
		events = append(events, RenamedPlayer{Old: players.Renamed[name], New: name})
	}

	for _, name := range maps.Added {
		events = append(events, AddedMap{Name: name, Difficulty: difficulty[name]})
	}
	for _, name := range maps.Removed {
		events = append(events, RemovedMap{Name: name})
	}
	for _, name := range sortedKeys(maps.Renamed) {
		events = append(events, RenamedMap{Old: maps.Renamed[name], New: name, Difficulty: difficulty[name]})
	}
	return events
}

// Compute runs the whole reconciliation between the previous snapshot and
// the current one and returns the final event list.
func Compute(old, cur Snapshot, difficulty map[string]int) []Event {
	players := Reconcile(PlayerClearSets(old), PlayerClearSets(cur))
	maps := Reconcile(MapClearSets(old), MapClearSets(cur))

	raw := DiffSnapshots(old, cur, players, maps, difficulty)
	return append(EntityEvents(players, maps, difficulty), Consolidate(raw)...)
}
