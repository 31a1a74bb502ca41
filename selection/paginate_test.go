// ABOUTME: Tests for Paginate slicing, clamping, and argument validation.
// ABOUTME: Mirrors how the review session pages through directory listings.
package selection

import (
	"errors"
	"reflect"
	"testing"
)

func TestPaginateSlicesCurrentPage(t *testing.T) {
	items := []string{"item-1", "item-2", "item-3", "item-4", "item-5", "item-6", "item-7"}

	page, total, idx, err := Paginate(items, 3, 1)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if total != 3 || idx != 1 {
		t.Fatalf("total=%d idx=%d", total, idx)
	}
	if !reflect.DeepEqual(page, []string{"item-4", "item-5", "item-6"}) {
		t.Fatalf("page = %v", page)
	}
}

func TestPaginateClampsIndex(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page, _, idx, _ := Paginate(items, 2, 99)
	if idx != 2 || !reflect.DeepEqual(page, []int{5}) {
		t.Fatalf("idx=%d page=%v", idx, page)
	}
	_, _, idx, _ = Paginate(items, 2, -4)
	if idx != 0 {
		t.Fatalf("negative index clamped to %d", idx)
	}
}

func TestPaginateEmpty(t *testing.T) {
	page, total, idx, err := Paginate([]string{}, 5, 3)
	if err != nil || total != 1 || idx != 0 || len(page) != 0 {
		t.Fatalf("page=%v total=%d idx=%d err=%v", page, total, idx, err)
	}
}

func TestPaginateRejectsBadPageSize(t *testing.T) {
	if _, _, _, err := Paginate([]string{"a"}, 0, 0); !errors.Is(err, ErrPageSize) {
		t.Fatalf("err = %v", err)
	}
}
