package sheets

import (
	"strconv"
	"strings"
)

// A1 converts 1-based row and column numbers to A1 notation: A1(1, 1) is
// "A1", A1(3, 28) is "AB3".
func A1(row, col int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// ColumnName converts a 1-based column number to its letters.
func ColumnName(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append(b, byte('A'+col%26))
		col /= 26
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// Quote returns a page title usable as a range prefix.
func Quote(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// GridRange returns the A1 range covering a rows x cols grid anchored at A1
// on page.
func GridRange(page string, rows, cols int) string {
	r := "A1:" + A1(max(rows, 1), max(cols, 1))
	if page == "" {
		return r
	}
	return Quote(page) + "!" + r
}
