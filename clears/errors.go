package clears

import "fmt"

// ErrStructure is returned when a grid does not have the minimum shape the
// parser relies on. Retrying against the same source cannot succeed.
type ErrStructure struct {
	Source string
	Rows   int
	Cols   int
}

func (e *ErrStructure) Error() string {
	return fmt.Sprintf("clears: %s is too small or does not follow the label structure (%d rows, %d header columns)",
		e.Source, e.Rows, e.Cols)
}
