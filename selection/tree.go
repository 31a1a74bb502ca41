// ABOUTME: In-memory hierarchical index over a flat set of file paths with tri-state selection.
// ABOUTME: Directory status is always derived from the selected file set, never stored.
package selection

import (
	"sort"
)

// State is the tri-state selection status of a node.
type State int

const (
	Unchecked State = iota
	Partial
	Checked
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Checked:
		return "checked"
	case Partial:
		return "partial"
	default:
		return "unchecked"
	}
}

// Tree indexes files by normalized path. Directories are inferred from strict
// prefixes of file paths. The selected set only ever contains file nodes.
//
// Tree is not safe for concurrent mutation; callers serialize writes.
type Tree struct {
	parent   map[string]string
	children map[string]map[string]struct{}
	files    map[string]struct{}
	dirs     map[string]struct{}
	selected map[string]struct{}
}

// Build normalizes every path, derives the implicit directory nodes, and seeds
// the selection with the intersection of selected and the derived file set.
func Build(paths []string, selected []string) *Tree {
	t := &Tree{
		parent:   make(map[string]string),
		children: make(map[string]map[string]struct{}),
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		selected: make(map[string]struct{}),
	}
	t.children[""] = make(map[string]struct{})

	wanted := make(map[string]struct{}, len(selected))
	for _, p := range selected {
		wanted[NormalizePath(p)] = struct{}{}
	}

	for _, raw := range paths {
		chain := prefixes(NormalizePath(raw))
		if len(chain) == 0 {
			continue
		}
		file := chain[len(chain)-1]
		t.files[file] = struct{}{}
		if _, ok := wanted[file]; ok {
			t.selected[file] = struct{}{}
		}

		for i, node := range chain {
			parent := ""
			if i > 0 {
				parent = chain[i-1]
			}
			t.parent[node] = parent
			t.childSet(parent)[node] = struct{}{}
			t.childSet(node)
			if i < len(chain)-1 {
				t.dirs[node] = struct{}{}
			}
		}
	}
	return t
}

func (t *Tree) childSet(node string) map[string]struct{} {
	set, ok := t.children[node]
	if !ok {
		set = make(map[string]struct{})
		t.children[node] = set
	}
	return set
}

// IsDirectory reports whether the path is an inferred directory node.
func (t *Tree) IsDirectory(p string) bool {
	_, ok := t.dirs[NormalizePath(p)]
	return ok
}

// IsFile reports whether the path is one of the original candidate files.
func (t *Tree) IsFile(p string) bool {
	_, ok := t.files[NormalizePath(p)]
	return ok
}

// Parent returns the parent node of p. The root's parent, and the parent of
// unknown nodes, is the empty string.
func (t *Tree) Parent(p string) string {
	return t.parent[NormalizePath(p)]
}

// Children lists the direct children of p (use "" for the synthetic root),
// directories first, then lexicographically.
func (t *Tree) Children(p string) []string {
	key := p
	if key != "" {
		key = NormalizePath(p)
	}
	set := t.children[key]
	out := make([]string, 0, len(set))
	for node := range set {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool {
		_, di := t.dirs[out[i]]
		_, dj := t.dirs[out[j]]
		if di != dj {
			return di
		}
		return out[i] < out[j]
	})
	return out
}

// ChildDirectories lists only the directory children of p in sorted order.
func (t *Tree) ChildDirectories(p string) []string {
	all := t.Children(p)
	out := all[:0:0]
	for _, node := range all {
		if _, ok := t.dirs[node]; ok {
			out = append(out, node)
		}
	}
	return out
}

// DescendantFiles returns every file below p, sorted. For a file node this is
// empty; the walk never memoizes.
func (t *Tree) DescendantFiles(p string) []string {
	set := t.descendants(NormalizePath(p))
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (t *Tree) descendants(node string) map[string]struct{} {
	found := make(map[string]struct{})
	stack := make([]string, 0, len(t.children[node]))
	for child := range t.children[node] {
		stack = append(stack, child)
	}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := t.files[item]; ok {
			found[item] = struct{}{}
		}
		if _, ok := t.dirs[item]; ok {
			for child := range t.children[item] {
				stack = append(stack, child)
			}
		}
	}
	return found
}

// SelectionState derives the tri-state status of p. Files are checked or
// unchecked; directories compare their descendant files against the selection.
func (t *Tree) SelectionState(p string) State {
	node := NormalizePath(p)
	if _, ok := t.dirs[node]; !ok {
		if _, sel := t.selected[node]; sel {
			return Checked
		}
		return Unchecked
	}

	desc := t.descendants(node)
	if len(desc) == 0 {
		return Unchecked
	}
	count := 0
	for f := range desc {
		if _, ok := t.selected[f]; ok {
			count++
		}
	}
	switch count {
	case 0:
		return Unchecked
	case len(desc):
		return Checked
	default:
		return Partial
	}
}

// Toggle flips a file's membership, or for a directory deselects every
// descendant file when fully checked and selects them all otherwise. Unknown
// paths and empty directories are left alone.
func (t *Tree) Toggle(p string) {
	node := NormalizePath(p)
	if _, ok := t.dirs[node]; ok {
		desc := t.descendants(node)
		if len(desc) == 0 {
			return
		}
		if t.SelectionState(node) == Checked {
			t.removeAll(desc)
		} else {
			t.addAll(desc)
		}
		return
	}

	if _, ok := t.files[node]; !ok {
		return
	}
	if _, sel := t.selected[node]; sel {
		delete(t.selected, node)
	} else {
		t.selected[node] = struct{}{}
	}
}

// SelectSubtree adds every descendant file of dir to the selection and
// returns how many files it covered.
func (t *Tree) SelectSubtree(dir string) int {
	desc := t.descendants(NormalizePath(dir))
	t.addAll(desc)
	return len(desc)
}

// DeselectSubtree removes every descendant file of dir from the selection and
// returns how many files it covered.
func (t *Tree) DeselectSubtree(dir string) int {
	desc := t.descendants(NormalizePath(dir))
	t.removeAll(desc)
	return len(desc)
}

func (t *Tree) addAll(set map[string]struct{}) {
	for f := range set {
		t.selected[f] = struct{}{}
	}
}

func (t *Tree) removeAll(set map[string]struct{}) {
	for f := range set {
		delete(t.selected, f)
	}
}

// IsSelected reports whether the file p is currently selected.
func (t *Tree) IsSelected(p string) bool {
	_, ok := t.selected[NormalizePath(p)]
	return ok
}

// SelectedFiles returns the selected file set, sorted.
func (t *Tree) SelectedFiles() []string {
	out := make([]string, 0, len(t.selected))
	for f := range t.selected {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Files returns every file node, sorted.
func (t *Tree) Files() []string {
	out := make([]string, 0, len(t.files))
	for f := range t.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FileCount returns the number of file nodes.
func (t *Tree) FileCount() int { return len(t.files) }
