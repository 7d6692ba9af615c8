package persistence

import (
	"fmt"
	"slices"
)

// sortByTime orders items by the nanosecond timestamp at, keeping the
// key order for ties.
func sortByTime[T any](items []T, at func(T) int64) {
	slices.SortStableFunc(items, func(a, b T) int {
		x, y := at(a), at(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	})
}

func lineField(i int) string {
	return fmt.Sprintf("lines[%d]", i)
}
