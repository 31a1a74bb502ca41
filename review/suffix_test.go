// ABOUTME: Tests for suffix grouping and default whitelist selection.
package review

import (
	"context"
	"reflect"
	"testing"
)

func TestDefaultWhitelistThreshold(t *testing.T) {
	rows := []SuffixRow{
		{Ext: ".pdf", Label: "keep", Confidence: 0.85},
		{Ext: ".md", Label: "keep", Confidence: 0.8},
		{Ext: ".bin", Label: "keep", Confidence: 0.5},
		{Ext: ".tmp", Label: "drop", Confidence: 0.99},
	}
	got, err := AutoSuffixReviewer{}.ReviewSuffixes(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{".md", ".pdf"}) {
		t.Fatalf("whitelist = %v", got)
	}
}

func TestGroupSuffixRowsOrder(t *testing.T) {
	rows := []SuffixRow{
		{Ext: ".zip", Category: "Archive"},
		{Ext: ".pdf", Category: "Document"},
		{Ext: ".xyz", Category: "Mystery"},
		{Ext: ".jpg", Category: "Image"},
	}
	groups := GroupSuffixRows(rows)
	var names []string
	for _, g := range groups {
		names = append(names, g.Category)
	}
	if !reflect.DeepEqual(names, []string{"Document", "Image", "Archive", "Other"}) {
		t.Fatalf("groups = %v", names)
	}
}
