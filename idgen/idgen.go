// Package idgen generates the identifiers clearwatch attaches to runs and
// delivered messages. Constructors that need IDs accept a Generator so tests
// can pin them.
package idgen

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 UUID v7 strings. They sort by
// creation time, which keeps the run log in order without a second index.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a deterministic Generator yielding prefix1, prefix2, ...
// for tests and previews.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}

// Run and Message are the generators used for run IDs and delivery IDs.
var (
	Run     Generator = Prefixed(RunPrefix, UUIDv7())
	Message Generator = Prefixed(MessagePrefix, UUIDv7())
)

const (
	RunPrefix     = "run_"
	MessagePrefix = "msg_"
)

// Parse validates an ID of the form <prefix><uuid> and returns it in
// canonical form.
func Parse(id string) (string, error) {
	prefix, raw := "", id
	for _, p := range []string{RunPrefix, MessagePrefix} {
		if strings.HasPrefix(id, p) {
			prefix, raw = p, id[len(p):]
			break
		}
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid id %q: %w", id, err)
	}
	return prefix + u.String(), nil
}
