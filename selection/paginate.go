// ABOUTME: Fixed-size pagination over sorted child listings.
// ABOUTME: Clamps out-of-range page indexes instead of failing.
package selection

import "errors"

// ErrPageSize is returned when a page size is not positive.
var ErrPageSize = errors.New("page size must be positive")

// Paginate returns the page at pageIndex (clamped to the valid range), the
// total page count, and the clamped index. An empty list has one empty page.
func Paginate[T any](items []T, pageSize, pageIndex int) ([]T, int, int, error) {
	if pageSize <= 0 {
		return nil, 0, 0, ErrPageSize
	}
	if len(items) == 0 {
		return []T{}, 1, 0, nil
	}

	total := (len(items) + pageSize - 1) / pageSize
	idx := max(0, min(pageIndex, total-1))
	start := idx * pageSize
	end := min(start+pageSize, len(items))
	return items[start:end], total, idx, nil
}
