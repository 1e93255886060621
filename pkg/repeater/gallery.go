package repeater

// Gallery values are flat ordered lists of asset ids. The move and remove
// buttons the gallery widget emits map onto these operations; like row
// operations, out-of-range indexes and boundary moves are no-ops.

// RemoveImage returns the list without the entry at index, preserving the
// order of the remaining entries. The input slice is not modified.
func RemoveImage(items []any, index int) []any {
	if index < 0 || index >= len(items) {
		return items
	}
	out := make([]any, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	return out
}

// MoveImage swaps the entry at index with its neighbour in the given
// direction. Moves past either end report false and leave the list alone.
func MoveImage(items []any, index int, dir Direction) bool {
	if index < 0 || index >= len(items) {
		return false
	}
	target := index - 1
	if dir == Down {
		target = index + 1
	}
	if target < 0 || target >= len(items) {
		return false
	}
	items[index], items[target] = items[target], items[index]
	return true
}
