package clears

// Kind enumerates the event variants.
type Kind int

const (
	KindAddedClear Kind = iota + 1
	KindRemovedClear
	KindChangedClear
	KindAddedPlayer
	KindRemovedPlayer
	KindRenamedPlayer
	KindAddedMap
	KindRemovedMap
	KindRenamedMap
)

var kindNames = map[Kind]string{
	KindAddedClear:    "added_clear",
	KindRemovedClear:  "removed_clear",
	KindChangedClear:  "changed_clear",
	KindAddedPlayer:   "added_player",
	KindRemovedPlayer: "removed_player",
	KindRenamedPlayer: "renamed_player",
	KindAddedMap:      "added_map",
	KindRemovedMap:    "removed_map",
	KindRenamedMap:    "renamed_map",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON and logs.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is one entry of a diff list. The set of implementations is closed:
// only the types in this file satisfy it.
type Event interface {
	Kind() Kind
	isEvent()
}

// ClearRef locates a clear-level event. Map is the raw row label in raw
// diffs and the trimmed name after consolidation; Suffix is the row's tag.
type ClearRef struct {
	Player     string `json:"player"`
	Map        string `json:"map"`
	Suffix     string `json:"suffix"`
	Difficulty int    `json:"difficulty"`
}

type AddedClear struct {
	ClearRef
	Value string `json:"value"`
}

type RemovedClear struct {
	ClearRef
	OldValue string `json:"old_value"`
}

type ChangedClear struct {
	ClearRef
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type AddedPlayer struct {
	Name string `json:"name"`
}

type RemovedPlayer struct {
	Name string `json:"name"`
}

type RenamedPlayer struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type AddedMap struct {
	Name       string `json:"name"`
	Difficulty int    `json:"difficulty"`
}

type RemovedMap struct {
	Name string `json:"name"`
}

type RenamedMap struct {
	Old        string `json:"old"`
	New        string `json:"new"`
	Difficulty int    `json:"difficulty"`
}

func (AddedClear) Kind() Kind    { return KindAddedClear }
func (RemovedClear) Kind() Kind  { return KindRemovedClear }
func (ChangedClear) Kind() Kind  { return KindChangedClear }
func (AddedPlayer) Kind() Kind   { return KindAddedPlayer }
func (RemovedPlayer) Kind() Kind { return KindRemovedPlayer }
func (RenamedPlayer) Kind() Kind { return KindRenamedPlayer }
func (AddedMap) Kind() Kind      { return KindAddedMap }
func (RemovedMap) Kind() Kind    { return KindRemovedMap }
func (RenamedMap) Kind() Kind    { return KindRenamedMap }

func (AddedClear) isEvent()    {}
func (RemovedClear) isEvent()  {}
func (ChangedClear) isEvent()  {}
func (AddedPlayer) isEvent()   {}
func (RemovedPlayer) isEvent() {}
func (RenamedPlayer) isEvent() {}
func (AddedMap) isEvent()      {}
func (RemovedMap) isEvent()    {}
func (RenamedMap) isEvent()    {}

// clearRef returns the location of a clear-level event.
func clearRef(e Event) (ClearRef, bool) {
	switch ev := e.(type) {
	case AddedClear:
		return ev.ClearRef, true
	case RemovedClear:
		return ev.ClearRef, true
	case ChangedClear:
		return ev.ClearRef, true
	}
	return ClearRef{}, false
}

// withMap returns a copy of a clear-level event relocated to name.
func withMap(e Event, name string) Event {
	switch ev := e.(type) {
	case AddedClear:
		ev.Map = name
		return ev
	case RemovedClear:
		ev.Map = name
		return ev
	case ChangedClear:
		ev.Map = name
		return ev
	}
	return e
}
