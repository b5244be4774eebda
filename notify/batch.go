package notify

import (
	"time"
	"unicode/utf8"
)

// DefaultLimit keeps every chunk under Discord's 2000 character cap with
// room to spare.
const DefaultLimit = 1900

// Header returns the line that opens every chunk of a report.
func Header(now time.Time) string {
	return "--- 📜 Sheet Monitor Report (" + now.Format("2006-01-02 15:04") + ") ---"
}

// Batch packs lines into chunks of at most limit characters. Each chunk
// starts with header and lines are joined by newlines. A line that cannot fit
// even in an empty chunk is cut short. No lines means no chunks.
func Batch(header string, lines []string, limit int) []string {
	if len(lines) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	headerLen := utf8.RuneCountInString(header)
	room := limit - headerLen - 1

	var chunks []string
	content, size := header, headerLen
	for _, line := range lines {
		if room > 0 && utf8.RuneCountInString(line) > room {
			line = truncate(line, room)
		}
		n := utf8.RuneCountInString(line)
		if size+n+1 > limit && size > headerLen {
			chunks = append(chunks, content)
			content, size = header, headerLen
		}
		content += "\n" + line
		size += n + 1
	}
	return append(chunks, content)
}

// truncate cuts s to max characters, the last one being an ellipsis.
func truncate(s string, max int) string {
	if max <= 1 {
		return "…"
	}
	n := 0
	for i := range s {
		if n == max-1 {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
