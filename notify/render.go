// Package notify turns clear-tracking events into human-readable notices,
// packs them into platform-sized messages and hands them to channels.
package notify

import (
	"context"
	"fmt"

	"github.com/hazyhaar/clearwatch/clears"
)

// Importance decides which channel a notice goes to.
type Importance int

const (
	// Primary notices are new or upgraded clears worth announcing.
	Primary Importance = iota + 1
	// Secondary notices are bookkeeping: removals, renames, odd values.
	Secondary
)

func (i Importance) String() string {
	switch i {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

func (i Importance) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// Notice is one rendered event.
type Notice struct {
	Kind       clears.Kind `json:"kind"`
	Importance Importance  `json:"importance"`
	Text       string      `json:"text"`
}

// TierLabeler resolves the tier label of a trimmed map name.
// *tiers.Lookup satisfies it; nil disables decoration.
type TierLabeler interface {
	Label(ctx context.Context, name string, fullClear bool) string
}

// RenderAll renders events in order.
func RenderAll(ctx context.Context, events []clears.Event, tiers TierLabeler) []Notice {
	out := make([]Notice, 0, len(events))
	for _, e := range events {
		out = append(out, Render(ctx, e, tiers))
	}
	return out
}

// Render produces the notice for one event.
func Render(ctx context.Context, e clears.Event, tiers TierLabeler) Notice {
	n := Notice{Kind: e.Kind(), Importance: Secondary}
	switch ev := e.(type) {
	case clears.AddedClear:
		ct := clears.ClassifyInRow(ev.Value, ev.Suffix)
		if ct.Recognized() {
			n.Importance = Primary
			n.Text = fmt.Sprintf("🎉 `%s` cleared %s! (%s)", ev.Player, mapTitle(ev.ClearRef), ev.Value)
		} else {
			n.Text = fmt.Sprintf("❓ `%s` has an unusual value on %s: %s", ev.Player, mapTitle(ev.ClearRef), ev.Value)
		}
		n.Text += tierSuffix(ctx, tiers, ev.ClearRef, ct)

	case clears.RemovedClear:
		n.Text = fmt.Sprintf("🔴 `%s`'s clear of %s was REMOVED (was %s)", ev.Player, mapTitle(ev.ClearRef), ev.OldValue)

	case clears.ChangedClear:
		before := clears.ClassifyInRow(ev.OldValue, ev.Suffix)
		after := clears.ClassifyInRow(ev.NewValue, ev.Suffix)
		if after.Recognized() && after.IsFullClear() && !before.IsFullClear() {
			n.Importance = Primary
			n.Text = fmt.Sprintf("🎉 `%s` full cleared %s! (%s -> %s)", ev.Player, mapTitle(ev.ClearRef), ev.OldValue, ev.NewValue)
		} else {
			n.Text = fmt.Sprintf("🟡 `%s`'s clear of %s was changed (%s -> %s)", ev.Player, mapTitle(ev.ClearRef), ev.OldValue, ev.NewValue)
		}
		n.Text += tierSuffix(ctx, tiers, ev.ClearRef, after)

	case clears.AddedPlayer:
		n.Text = fmt.Sprintf("👋 new player! `%s`", ev.Name)
	case clears.RemovedPlayer:
		n.Text = fmt.Sprintf("🪦 removed player :( `%s`", ev.Name)
	case clears.RenamedPlayer:
		n.Text = fmt.Sprintf("✏️ player `%s` is now `%s`", ev.Old, ev.New)
	case clears.AddedMap:
		n.Text = fmt.Sprintf("🗺️ new map! %s%s", ev.Name, stars(ev.Difficulty))
	case clears.RemovedMap:
		n.Text = fmt.Sprintf("❌ removed map :( %s", ev.Name)
	case clears.RenamedMap:
		n.Text = fmt.Sprintf("✏️ map %s is now %s%s", ev.Old, ev.New, stars(ev.Difficulty))
	default:
		n.Text = fmt.Sprintf("unknown event %s", e.Kind())
	}
	return n
}

// mapTitle shows the map the way the sheet labels its row.
func mapTitle(ref clears.ClearRef) string {
	if ref.Suffix == "" {
		return ref.Map
	}
	return ref.Map + " " + ref.Suffix
}

func tierSuffix(ctx context.Context, tiers TierLabeler, ref clears.ClearRef, ct clears.ClearType) string {
	if tiers == nil {
		return ""
	}
	fc := ref.Suffix == clears.SuffixFullClear || ct.IsFullClear()
	label := tiers.Label(ctx, clears.SplitMapLabel(ref.Map).Name, fc)
	if label == "" {
		return ""
	}
	return " [" + label + "]"
}

func stars(difficulty int) string {
	if difficulty <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%d⭐)", difficulty)
}
