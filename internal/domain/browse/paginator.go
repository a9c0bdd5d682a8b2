package browse

import "slices"

// Page is one slice of a view.
type Page[T any] struct {
	Items []T
	// Index is 1-based and already clamped.
	Index int
	Count int
	Size  int
}

// PageCount returns max(1, ceil(n/size)). Sizes below 1 are treated as 1.
func PageCount(n, size int) int {
	if size < 1 {
		size = 1
	}
	count := (n + size - 1) / size
	if count < 1 {
		return 1
	}
	return count
}

// ClampPage forces index into [1, count].
func ClampPage(index, count int) int {
	if count < 1 {
		count = 1
	}
	return min(max(index, 1), count)
}

// Paginate returns the clamped page of view. The returned items are a copy.
func Paginate[T any](view []T, size, index int) Page[T] {
	if size < 1 {
		size = 1
	}
	count := PageCount(len(view), size)
	index = ClampPage(index, count)

	start := (index - 1) * size
	end := min(start+size, len(view))
	return Page[T]{
		Items: slices.Clone(view[start:end]),
		Index: index,
		Count: count,
		Size:  size,
	}
}
