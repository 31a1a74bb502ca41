// ABOUTME: Copy preflight: checks the target is writable and has room for the selection before any byte moves.
// ABOUTME: Every check runs so the caller sees every problem at once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
)

// ErrInsufficientSpace is returned when the target cannot hold the selection.
var ErrInsufficientSpace = errors.New("insufficient free space on target")

// ErrPreflight wraps a failed preflight result.
var ErrPreflight = errors.New("copy preflight failed")

// PreflightCheck is one named validation run before copying.
type PreflightCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// PreflightResult holds the outcome of every check.
type PreflightResult struct {
	Passed []string
	Failed []PreflightFailure
}

// PreflightFailure records a failing check and why.
type PreflightFailure struct {
	Name   string
	Reason string
	Err    error
}

// OK reports whether every check passed.
func (r PreflightResult) OK() bool {
	return len(r.Failed) == 0
}

// Error formats the failures, one per line. Empty when all checks passed.
func (r PreflightResult) Error() string {
	if len(r.Failed) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Failed)+1)
	lines = append(lines, fmt.Sprintf("preflight: %d check(s) failed:", len(r.Failed)))
	for _, f := range r.Failed {
		lines = append(lines, fmt.Sprintf("  - %s: %s", f.Name, f.Reason))
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the failing checks' errors to errors.Is.
func (r PreflightResult) Unwrap() []error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// RunPreflight runs every check and collects the results.
func RunPreflight(ctx context.Context, checks []PreflightCheck) PreflightResult {
	result := PreflightResult{
		Passed: make([]string, 0, len(checks)),
		Failed: make([]PreflightFailure, 0),
	}
	for _, c := range checks {
		if err := c.Check(ctx); err != nil {
			result.Failed = append(result.Failed, PreflightFailure{Name: c.Name, Reason: err.Error(), Err: err})
		} else {
			result.Passed = append(result.Passed, c.Name)
		}
	}
	return result
}

// CopyPreflightChecks builds the checks for copying needBytes into target.
func CopyPreflightChecks(target string, needBytes uint64, freeSpace func(ctx context.Context, path string) (uint64, error)) []PreflightCheck {
	return []PreflightCheck{
		{
			Name: "target-writable",
			Check: func(context.Context) error {
				if err := os.MkdirAll(target, 0755); err != nil {
					return fmt.Errorf("create target: %w", err)
				}
				f, err := os.CreateTemp(target, ".ark-preflight-*")
				if err != nil {
					return fmt.Errorf("target not writable: %w", err)
				}
				name := f.Name()
				f.Close()
				return os.Remove(name)
			},
		},
		{
			Name: "free-space",
			Check: func(ctx context.Context) error {
				free, err := freeSpace(ctx, existingAncestor(target))
				if err != nil {
					return fmt.Errorf("query free space: %w", err)
				}
				if free < needBytes {
					return fmt.Errorf("%w: need %s, have %s", ErrInsufficientSpace,
						humanize.IBytes(needBytes), humanize.IBytes(free))
				}
				return nil
			},
		},
	}
}

// DiskFree reports the bytes available to unprivileged users on the volume
// holding path.
func DiskFree(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func existingAncestor(path string) string {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
