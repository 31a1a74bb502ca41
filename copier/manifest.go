// ABOUTME: Target manifest written after a backup: run id, time, and every copied file.
package copier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ManifestName is the file written at the top of the target directory.
const ManifestName = "ark-manifest.json"

// Manifest records what one run copied into a target.
type Manifest struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	TotalBytes int64     `json:"total_bytes"`
	Files      []Result  `json:"files"`
}

// WriteManifest writes the manifest for files into target, sorted by source
// path, replacing any earlier manifest atomically.
func WriteManifest(target, runID string, files []Result, now time.Time) (string, error) {
	sorted := append([]Result(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })

	m := Manifest{RunID: runID, CreatedAt: now.UTC(), Files: sorted}
	for _, f := range sorted {
		m.TotalBytes += f.Bytes
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("create target: %w", err)
	}
	path := filepath.Join(target, ManifestName)
	tmp, err := os.CreateTemp(target, ".ark-manifest-*")
	if err != nil {
		return "", fmt.Errorf("create temp manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads the manifest in target.
func ReadManifest(target string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(target, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
