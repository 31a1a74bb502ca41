// ABOUTME: Path normalization shared by the selection tree and its callers.
// ABOUTME: Produces slash-separated canonical paths and their strict prefix chain.
package selection

import "strings"

// NormalizePath converts a raw path into the canonical node identity used by
// the tree: backslashes become slashes, "." and empty segments collapse, and a
// trailing slash is stripped. A lone "/" is preserved. ".." is kept verbatim.
func NormalizePath(p string) string {
	raw := strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if raw == "" {
		return ""
	}
	absolute := strings.HasPrefix(raw, "/")

	parts := strings.Split(raw, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		kept = append(kept, part)
	}

	joined := strings.Join(kept, "/")
	switch {
	case absolute:
		return "/" + joined
	case joined == "":
		return "."
	default:
		return joined
	}
}

// prefixes returns every prefix of an already normalized path, shortest first.
// The final element is the path itself.
func prefixes(p string) []string {
	if p == "" || p == "/" || p == "." {
		return nil
	}
	absolute := strings.HasPrefix(p, "/")
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")

	out := make([]string, 0, len(segments))
	current := ""
	for _, seg := range segments {
		switch {
		case current == "" && absolute:
			current = "/" + seg
		case current == "":
			current = seg
		default:
			current = current + "/" + seg
		}
		out = append(out, current)
	}
	return out
}

// BaseName returns the last segment of a normalized path, used for display.
func BaseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
