// ABOUTME: Shared fixtures for pipeline tests: a scripted classification gateway and source tree builders.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/2389-research/ark/classify"
	"github.com/2389-research/ark/runstore"
)

// fakeGateway answers every suffix as high value and every path as keep
// unless its key is listed in lowPaths. Errors can be injected per method.
type fakeGateway struct {
	mu sync.Mutex

	lowPaths  map[string]bool
	suffixErr error
	pathErr   error
	dirErr    error
	verdict   classify.DirectoryVerdict

	// onPathBatch runs at the start of every ClassifyPaths call with the
	// 1-based call number.
	onPathBatch func(n int)

	suffixCalls [][]string
	pathCalls   [][]string
	dirCalls    []string
}

func (g *fakeGateway) ClassifySuffixes(_ context.Context, exts []string) (map[string]classify.SuffixRisk, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.suffixCalls = append(g.suffixCalls, append([]string(nil), exts...))
	if g.suffixErr != nil {
		return nil, g.suffixErr
	}
	out := make(map[string]classify.SuffixRisk, len(exts))
	for _, ext := range exts {
		out[ext] = classify.SuffixRisk{Risk: classify.HighValue, Confidence: 0.9, Reason: "user data"}
	}
	return out, nil
}

func (g *fakeGateway) ClassifyPaths(_ context.Context, keys []string) (map[string]classify.PathRisk, error) {
	g.mu.Lock()
	g.pathCalls = append(g.pathCalls, append([]string(nil), keys...))
	n := len(g.pathCalls)
	hook := g.onPathBatch
	g.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if g.pathErr != nil {
		return nil, g.pathErr
	}
	out := make(map[string]classify.PathRisk, len(keys))
	for _, k := range keys {
		if g.lowPaths[k] {
			out[k] = classify.PathRisk{Risk: classify.LowValue, Score: 0.2, Confidence: 0.9, Reason: "cache artifact"}
			continue
		}
		out[k] = classify.PathRisk{Risk: classify.HighValue, Score: 0.95, Confidence: 0.9, Reason: "personal file"}
	}
	return out, nil
}

func (g *fakeGateway) ClassifyDirectory(_ context.Context, dir string, _, _ []string) (classify.DirectoryVerdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirCalls = append(g.dirCalls, dir)
	if g.dirErr != nil {
		return classify.DirectoryVerdict{}, g.dirErr
	}
	if g.verdict.Decision == "" {
		return classify.DirectoryVerdict{Decision: classify.NotSure, Reason: "unsure"}, nil
	}
	return g.verdict, nil
}

func (g *fakeGateway) pathCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pathCalls)
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

func newStore(t *testing.T) *runstore.Store {
	t.Helper()
	s, err := runstore.Open(filepath.Join(t.TempDir(), "state", "backup_runs"), nil)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	return s
}

func plentyOfSpace(context.Context, string) (uint64, error) { return 1 << 40, nil }

// baseConfig returns a config over one source root named "home" with the
// fake gateway wired to every AI stage except directory review.
func baseConfig(t *testing.T, store *runstore.Store, gw classify.Gateway) (Config, string) {
	t.Helper()
	base := t.TempDir()
	src := filepath.Join(base, "home")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		Target:          filepath.Join(base, "backup"),
		SourceRoots:     []string{src},
		Store:           store,
		Gateway:         gw,
		AISuffixEnabled: true,
		AIPathEnabled:   true,
		FreeSpace:       plentyOfSpace,
		Progress:        &Recorder{},
	}
	return cfg, src
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func containsPrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
