package clears

import "sort"

// EntityClearSets maps an entity (player or map) to the set of counterpart
// names it has a recorded clear with.
type EntityClearSets map[string]map[string]struct{}

// PlayerClearSets returns player -> maps cleared.
func PlayerClearSets(s Snapshot) EntityClearSets {
	sets := make(EntityClearSets)
	for k := range s {
		sets.add(k.Player, k.Map)
	}
	return sets
}

// MapClearSets returns map -> players with a clear.
func MapClearSets(s Snapshot) EntityClearSets {
	sets := make(EntityClearSets)
	for k := range s {
		sets.add(k.Map, k.Player)
	}
	return sets
}

func (e EntityClearSets) add(entity, counterpart string) {
	set, ok := e[entity]
	if !ok {
		set = make(map[string]struct{})
		e[entity] = set
	}
	set[counterpart] = struct{}{}
}

func isSubset(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Reconciliation is the outcome of matching old and new entity names.
type Reconciliation struct {
	Added   []string
	Removed []string
	// Renamed maps a new name to the old name it replaces.
	Renamed map[string]string
}

// OldName resolves a current name to its name in the previous snapshot.
func (r Reconciliation) OldName(name string) string {
	if old, ok := r.Renamed[name]; ok {
		return old
	}
	return name
}

// Reconcile finds the entities added, removed and renamed between two
// snapshots. Only entities present on exactly one side are candidates. A
// removed entity may be matched to an added one when its clear-set is a
// subset of the added entity's clear-set; the pairing is a maximum bipartite
// matching.
//
// A rename that loses a clear in the same update is reported as a removal
// plus an addition.
//
// Candidates are visited in lexicographic order, so ties between equally
// valid pairings always resolve the same way.
func Reconcile(old, cur EntityClearSets) Reconciliation {
	var removedOrRenamed, addedOrRenamed []string
	for name := range old {
		if _, ok := cur[name]; !ok {
			removedOrRenamed = append(removedOrRenamed, name)
		}
	}
	for name := range cur {
		if _, ok := old[name]; !ok {
			addedOrRenamed = append(addedOrRenamed, name)
		}
	}
	sort.Strings(removedOrRenamed)
	sort.Strings(addedOrRenamed)

	edges := make(map[string][]string, len(removedOrRenamed))
	for _, r := range removedOrRenamed {
		for _, a := range addedOrRenamed {
			if isSubset(old[r], cur[a]) {
				edges[r] = append(edges[r], a)
			}
		}
	}

	matching := maximumMatching(removedOrRenamed, edges)

	rec := Reconciliation{Renamed: matching}
	matchedOld := make(map[string]bool, len(matching))
	for _, o := range matching {
		matchedOld[o] = true
	}
	for _, r := range removedOrRenamed {
		if !matchedOld[r] {
			rec.Removed = append(rec.Removed, r)
		}
	}
	for _, a := range addedOrRenamed {
		if _, ok := matching[a]; !ok {
			rec.Added = append(rec.Added, a)
		}
	}
	return rec
}

// maximumMatching runs Kuhn's algorithm over the bipartite graph given by
// edges (left -> right). It returns right -> left.
func maximumMatching(left []string, edges map[string][]string) map[string]string {
	matching := make(map[string]string)
	for _, l := range left {
		if next, ok := augment(l, edges, matching); ok {
			matching = next
		}
	}
	return matching
}

// augment searches depth-first for an augmenting path starting at start.
// On success it returns a new matching with the path flipped; the input
// matching is left untouched.
func augment(start string, edges map[string][]string, matching map[string]string) (map[string]string, bool) {
	type frame struct {
		node string
		next int
	}

	visited := make(map[string]bool)
	stack := []frame{{node: start}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		cands := edges[top.node]
		if top.next >= len(cands) {
			stack = stack[:len(stack)-1]
			continue
		}
		right := cands[top.next]
		top.next++
		if visited[right] {
			continue
		}
		visited[right] = true

		holder, taken := matching[right]
		if taken {
			stack = append(stack, frame{node: holder})
			continue
		}

		// Every frame's last chosen edge lies on the path; flip them all.
		out := make(map[string]string, len(matching)+1)
		for k, v := range matching {
			out[k] = v
		}
		for _, f := range stack {
			out[edges[f.node][f.next-1]] = f.node
		}
		return out, true
	}
	return matching, false
}
