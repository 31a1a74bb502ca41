// ABOUTME: Tests for the final review session: defaults, filtering, navigation, checkpoints, resume, confirmation.
package review

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/propagate"
	"github.com/2389-research/ark/selection"
)

func fixtureRows() []Row {
	return []Row{
		{Path: "/src/docs/a.txt", Tier: Tier1, SizeBytes: 10, AIRisk: classify.HighValue},
		{Path: "/src/docs/b.txt", Tier: Tier2, SizeBytes: 20, AIRisk: classify.Neutral},
		{Path: "/src/cache/tmp.bin", Tier: Tier2, SizeBytes: 30, AIRisk: classify.LowValue},
		{Path: "/src/old.log", Tier: Stage1Filtered, SizeBytes: 5},
		{Path: "/src/.git/HEAD", Tier: Ignored, SizeBytes: 1},
	}
}

type recordedCheckpoints struct {
	list []Checkpoint
}

func (r *recordedCheckpoints) save(cp Checkpoint) error {
	r.list = append(r.list, cp)
	return nil
}

func (r *recordedCheckpoints) last() Checkpoint {
	return r.list[len(r.list)-1]
}

func TestDefaultsSelectTier1AndHideLowValue(t *testing.T) {
	nav := NewScriptedNavigator(Action{Kind: ActionOpen, Node: "/src"})
	res, err := Run(context.Background(), fixtureRows(), Options{
		HideLowValue: true,
		Navigator:    nav,
		Confirmer:    StaticConfirmer{Answer: true},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Approved || !reflect.DeepEqual(res.Selected, []string{"/src/docs/a.txt"}) {
		t.Fatalf("result = %+v", res)
	}

	inner := nav.Views[1]
	if inner.CurrentDir != "/src" || inner.Hidden != 1 {
		t.Fatalf("view = %+v", inner)
	}
	if len(inner.Entries) != 1 || inner.Entries[0].Path != "/src/docs" {
		t.Fatalf("entries = %+v", inner.Entries)
	}
	if inner.Entries[0].State != selection.Partial || inner.Entries[0].Size != 30 {
		t.Fatalf("docs entry = %+v", inner.Entries[0])
	}
	if inner.TotalCount != 3 || inner.SelectedCount != 1 || inner.SelectedBytes != 10 {
		t.Fatalf("counts = %+v", inner)
	}
}

func TestShowAllRevealsLowValueBranches(t *testing.T) {
	nav := NewScriptedNavigator(
		Action{Kind: ActionOpen, Node: "/src"},
		Action{Kind: ActionShowAll},
		Action{Kind: ActionShowFiltered},
		Action{Kind: ActionToggleLowValue},
	)
	_, err := Run(context.Background(), fixtureRows(), Options{HideLowValue: true, Navigator: nav})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(nav.Views[2].Entries); got != 2 || nav.Views[2].Hidden != 0 {
		t.Fatalf("show all entries = %d", got)
	}
	if got := len(nav.Views[3].Entries); got != 1 {
		t.Fatalf("filtered entries = %d", got)
	}
	if !nav.Views[4].ShowLowValue {
		t.Fatal("toggle should show low value again")
	}
}

func TestToggleAndOpenFile(t *testing.T) {
	nav := NewScriptedNavigator(
		Action{Kind: ActionToggle, Node: "/src/docs"},
		Action{Kind: ActionOpen, Node: "/src/docs/a.txt"},
	)
	res, _ := Run(context.Background(), fixtureRows(), Options{Navigator: nav})
	if !reflect.DeepEqual(res.Selected, []string{"/src/docs/b.txt"}) {
		t.Fatalf("selected = %v", res.Selected)
	}
}

func TestUpAndPaging(t *testing.T) {
	var rows []Row
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		rows = append(rows, Row{Path: "/r/" + name + ".txt", Tier: Tier2})
	}
	nav := NewScriptedNavigator(
		Action{Kind: ActionOpen, Node: "/r"},
		Action{Kind: ActionNextPage},
		Action{Kind: ActionNextPage},
		Action{Kind: ActionNextPage},
		Action{Kind: ActionPrevPage},
		Action{Kind: ActionUp},
	)
	_, err := Run(context.Background(), rows, Options{PageSize: 2, Navigator: nav})
	if err != nil {
		t.Fatal(err)
	}
	pages := []int{}
	for _, v := range nav.Views {
		pages = append(pages, v.Page)
	}
	if !reflect.DeepEqual(pages, []int{0, 0, 1, 2, 2, 1, 0}) {
		t.Fatalf("pages = %v", pages)
	}
	if nav.Views[3].TotalPages != 3 || len(nav.Views[3].Entries) != 1 {
		t.Fatalf("last page view = %+v", nav.Views[3])
	}
	if last := nav.Views[len(nav.Views)-1]; last.CurrentDir != "" {
		t.Fatalf("up from /r landed in %q", last.CurrentDir)
	}
}

func TestCheckpointAfterEveryAction(t *testing.T) {
	rec := &recordedCheckpoints{}
	nav := NewScriptedNavigator(
		Action{Kind: ActionOpen, Node: "/src"},
		Action{Kind: ActionToggle, Node: "/src/docs/b.txt"},
	)
	_, err := Run(context.Background(), fixtureRows(), Options{
		HideLowValue: true,
		Navigator:    nav,
		OnCheckpoint: rec.save,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.list) != 2 {
		t.Fatalf("checkpoints = %d, want 2", len(rec.list))
	}
	cp := rec.last()
	if cp.CurrentDir != "/src" || cp.ShowLowValue || cp.Complete {
		t.Fatalf("checkpoint = %+v", cp)
	}
	if !reflect.DeepEqual(cp.SelectedPaths, []string{"/src/docs/a.txt", "/src/docs/b.txt"}) {
		t.Fatalf("selected = %v", cp.SelectedPaths)
	}
}

func TestInterruptionCheckpointsAndReturnsError(t *testing.T) {
	rec := &recordedCheckpoints{}
	stop := errors.New("interrupted")
	calls := 0
	nav := NavigatorFunc(func(_ context.Context, v View) (Action, error) {
		calls++
		if calls == 1 {
			return Action{Kind: ActionToggle, Node: "/src/docs/b.txt"}, nil
		}
		return Action{}, stop
	})
	_, err := Run(context.Background(), fixtureRows(), Options{Navigator: nav, OnCheckpoint: rec.save})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v", err)
	}
	if len(rec.list) != 2 {
		t.Fatalf("checkpoints = %d", len(rec.list))
	}
	if !reflect.DeepEqual(rec.last().SelectedPaths, []string{"/src/docs/a.txt", "/src/docs/b.txt"}) {
		t.Fatalf("interrupt checkpoint = %+v", rec.last())
	}
}

func TestCancelledContextStopsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recordedCheckpoints{}
	_, err := Run(ctx, fixtureRows(), Options{Navigator: AutoNavigator{}, OnCheckpoint: rec.save})
	if !errors.Is(err, context.Canceled) || len(rec.list) != 1 {
		t.Fatalf("err=%v checkpoints=%d", err, len(rec.list))
	}
}

func TestCheckpointErrorPropagates(t *testing.T) {
	diskFull := errors.New("disk full")
	nav := NewScriptedNavigator(Action{Kind: ActionUp})
	_, err := Run(context.Background(), fixtureRows(), Options{
		Navigator:    nav,
		OnCheckpoint: func(Checkpoint) error { return diskFull },
	})
	if !errors.Is(err, diskFull) {
		t.Fatalf("err = %v", err)
	}
}

func TestDecliningConfirmationSelectsNothing(t *testing.T) {
	res, err := Run(context.Background(), fixtureRows(), Options{
		Navigator: AutoNavigator{},
		Confirmer: StaticConfirmer{Answer: false},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Approved || len(res.Selected) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

type dirGateway struct {
	classify.Heuristic
	mu    sync.Mutex
	calls int
	dirs  []string
	table map[string]classify.Decision
}

func (g *dirGateway) ClassifyDirectory(_ context.Context, dir string, _, _ []string) (classify.DirectoryVerdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.dirs = append(g.dirs, dir)
	if d, ok := g.table[dir]; ok {
		return classify.DirectoryVerdict{Decision: d, Reason: "scripted"}, nil
	}
	return classify.FallbackDirectory(), nil
}

func TestDirectoryPrePassAppliesDecisions(t *testing.T) {
	gw := &dirGateway{table: map[string]classify.Decision{"/src/docs": classify.Keep}}
	var seen []propagate.Decision
	res, err := Run(context.Background(), fixtureRows(), Options{
		Navigator:  AutoNavigator{},
		Gateway:    gw,
		OnDecision: func(d propagate.Decision) { seen = append(seen, d) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Selected, []string{"/src/docs/a.txt", "/src/docs/b.txt"}) {
		t.Fatalf("selected = %v", res.Selected)
	}
	if len(res.Decisions) != 3 || len(seen) != 3 {
		t.Fatalf("decisions = %d, callbacks = %d", len(res.Decisions), len(seen))
	}
}

func TestResumeRestoresSelectionAndSkipsPrePass(t *testing.T) {
	gw := &dirGateway{table: map[string]classify.Decision{"/src": classify.Drop}}
	nav := NewScriptedNavigator()
	res, err := Run(context.Background(), fixtureRows(), Options{
		Navigator: nav,
		Gateway:   gw,
		Resume: &Checkpoint{
			SelectedPaths: []string{"/src/cache/tmp.bin"},
			CurrentDir:    "/src/docs",
			PageIndex:     3,
			ShowLowValue:  true,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gw.calls != 0 || !res.PrePassSkipped {
		t.Fatalf("pre-pass ran on resume (calls=%d)", gw.calls)
	}
	if !reflect.DeepEqual(res.Selected, []string{"/src/cache/tmp.bin"}) {
		t.Fatalf("selected = %v", res.Selected)
	}
	v := nav.Views[0]
	if v.CurrentDir != "/src/docs" || !v.ShowLowValue || v.Page != 0 {
		t.Fatalf("resumed view = %+v", v)
	}
}

func TestResumeWithEmptySelectionRunsPrePass(t *testing.T) {
	gw := &dirGateway{}
	_, err := Run(context.Background(), fixtureRows(), Options{
		Navigator: AutoNavigator{},
		Gateway:   gw,
		Resume:    &Checkpoint{CurrentDir: "/gone"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gw.calls == 0 {
		t.Fatal("pre-pass should run when no selection was checkpointed")
	}
}

func TestIncludeExcludedAddsUnselectedRows(t *testing.T) {
	nav := NewScriptedNavigator()
	res, _ := Run(context.Background(), fixtureRows(), Options{Navigator: nav, IncludeExcluded: true})
	if nav.Views[0].TotalCount != 5 {
		t.Fatalf("total = %d", nav.Views[0].TotalCount)
	}
	if !reflect.DeepEqual(res.Selected, []string{"/src/docs/a.txt"}) {
		t.Fatalf("selected = %v", res.Selected)
	}
}

func TestPrePassLeavesExcludedRowsAlone(t *testing.T) {
	gw := &dirGateway{table: map[string]classify.Decision{"/src": classify.Keep}}
	nav := NewScriptedNavigator()
	res, err := Run(context.Background(), fixtureRows(), Options{
		Navigator:       nav,
		Gateway:         gw,
		IncludeExcluded: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/src/cache/tmp.bin", "/src/docs/a.txt", "/src/docs/b.txt"}
	if !reflect.DeepEqual(res.Selected, want) {
		t.Fatalf("selected = %v, want %v", res.Selected, want)
	}
	for _, dir := range gw.dirs {
		if dir == "/src/.git" {
			t.Fatal("walk visited a directory holding only ignored files")
		}
	}
	if nav.Views[0].TotalCount != 5 {
		t.Fatalf("excluded rows missing from the review: total = %d", nav.Views[0].TotalCount)
	}
}

func TestAbortedNavigatorCheckpoints(t *testing.T) {
	rec := &recordedCheckpoints{}
	nav := NavigatorFunc(func(context.Context, View) (Action, error) { return Action{}, ErrAborted })
	_, err := Run(context.Background(), fixtureRows(), Options{Navigator: nav, OnCheckpoint: rec.save})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v", err)
	}
	if len(rec.list) != 1 || !reflect.DeepEqual(rec.last().SelectedPaths, []string{"/src/docs/a.txt"}) {
		t.Fatalf("checkpoints = %+v", rec.list)
	}
}

func TestRunRequiresNavigator(t *testing.T) {
	if _, err := Run(context.Background(), nil, Options{}); !errors.Is(err, ErrNoNavigator) {
		t.Fatalf("err = %v", err)
	}
}

func TestSelectedSizeAndDefaults(t *testing.T) {
	rows := fixtureRows()
	if got := SelectedSize(rows, []string{"/src/docs/a.txt", "/src/cache/tmp.bin"}); got != 40 {
		t.Fatalf("size = %d", got)
	}
	if got := DefaultSelection(rows); !reflect.DeepEqual(got, []string{"/src/docs/a.txt"}) {
		t.Fatalf("defaults = %v", got)
	}
	counts := TierCounts(rows)
	if counts[Tier2] != 2 || counts[Ignored] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
