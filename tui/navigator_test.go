// ABOUTME: Tests for NavigatorModel key handling and rendering of a review page.
package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/ark/review"
	"github.com/2389-research/ark/selection"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testView() review.View {
	return review.View{
		CurrentDir: "/home",
		Entries: []review.Entry{
			{Path: "/home/docs", Name: "docs", IsDir: true, State: selection.Partial, Size: 4096},
			{Path: "/home/a.txt", Name: "a.txt", State: selection.Checked, Size: 10, Tier: review.Tier1},
			{Path: "/home/b.tmp", Name: "b.tmp", State: selection.Unchecked, Size: 20, Tier: review.Tier2},
		},
		Page:          0,
		TotalPages:    2,
		Hidden:        1,
		SelectedCount: 1,
		TotalCount:    4,
		SelectedBytes: 10,
	}
}

func press(t *testing.T, m NavigatorModel, keys ...tea.KeyMsg) (NavigatorModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(k)
		m = updated.(NavigatorModel)
	}
	return m, cmd
}

func TestNavigatorActions(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want review.Action
	}{
		{"open directory", []tea.KeyMsg{{Type: tea.KeyEnter}}, review.Action{Kind: review.ActionOpen, Node: "/home/docs"}},
		{"toggle file", []tea.KeyMsg{runes("j"), {Type: tea.KeySpace, Runes: []rune{' '}}}, review.Action{Kind: review.ActionToggle, Node: "/home/a.txt"}},
		{"cursor down twice", []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyDown}, runes("x")}, review.Action{Kind: review.ActionToggle, Node: "/home/b.tmp"}},
		{"up a level", []tea.KeyMsg{{Type: tea.KeyBackspace}}, review.Action{Kind: review.ActionUp}},
		{"next page", []tea.KeyMsg{runes("n")}, review.Action{Kind: review.ActionNextPage}},
		{"toggle low value", []tea.KeyMsg{runes("f")}, review.Action{Kind: review.ActionToggleLowValue}},
		{"show all", []tea.KeyMsg{runes("a")}, review.Action{Kind: review.ActionShowAll}},
		{"show filtered", []tea.KeyMsg{runes("r")}, review.Action{Kind: review.ActionShowFiltered}},
		{"done", []tea.KeyMsg{runes("d")}, review.Action{Kind: review.ActionDone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(t, NewNavigatorModel(testView(), 0), tt.keys...)
			got, ok := m.Action()
			if !ok {
				t.Fatal("no action chosen")
			}
			if got != tt.want {
				t.Errorf("action = %+v, want %+v", got, tt.want)
			}
			if cmd == nil {
				t.Error("expected quit command")
			}
		})
	}
}

func TestNavigatorIgnoresUnavailableMoves(t *testing.T) {
	root := testView()
	root.CurrentDir = ""
	m, _ := press(t, NewNavigatorModel(root, 0), tea.KeyMsg{Type: tea.KeyBackspace}, runes("p"), tea.KeyMsg{Type: tea.KeyUp})
	if _, ok := m.Action(); ok {
		t.Error("expected no action at the root on the first page")
	}
	if m.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", m.Cursor())
	}

	last := testView()
	last.Page = 1
	m, _ = press(t, NewNavigatorModel(last, 0), runes("n"))
	if _, ok := m.Action(); ok {
		t.Error("next page offered on the last page")
	}
}

func TestNavigatorCursorClamped(t *testing.T) {
	m := NewNavigatorModel(testView(), 10)
	if m.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", m.Cursor())
	}
	empty := NewNavigatorModel(review.View{}, 3)
	if empty.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", empty.Cursor())
	}
	m, _ = press(t, empty, tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := m.Action(); ok {
		t.Error("enter on an empty page chose an action")
	}
}

func TestNavigatorCtrlCAborts(t *testing.T) {
	m, cmd := press(t, NewNavigatorModel(testView(), 0), tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.Aborted() || cmd == nil {
		t.Error("ctrl+c did not abort")
	}
	if m.View() != "" {
		t.Error("aborted model still renders")
	}
}

func TestNavigatorView(t *testing.T) {
	out := NewNavigatorModel(testView(), 1).View()
	for _, want := range []string{"Final review: /home", "docs/", "a.txt", "b.tmp", MarkerChecked, MarkerPartial, MarkerUnchecked, "page 1/2", "selected 1/4", "1 low-value hidden", "4.0 KiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}
