// Package checkpoint implements optional checkpointing at a provided
// directory: YAML manifests written atomically via
// write-to-temp-then-rename, so a crash mid-write never corrupts the
// previous checkpoint.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PerplexityPoint is one entry of the perplexity convergence history.
type PerplexityPoint struct {
	Iteration int     `yaml:"iteration"`
	Value     float64 `yaml:"value"`
}

// Manifest is the checkpoint document written once per chkptInterval
// iterations: run id, iteration, seed, partition and topic counts,
// per-partition vertex counts, and the perplexity history. It does not
// hold topic assignments or vertex counters, so a run cannot be resumed
// from a manifest.
type Manifest struct {
	RunID             string            `yaml:"run_id"`
	Iteration         int               `yaml:"iteration"`
	Seed              int64             `yaml:"seed"`
	NumPartitions     int               `yaml:"num_partitions"`
	NumTopics         int               `yaml:"num_topics"`
	PartitionVertices []int             `yaml:"partition_vertices"`
	PerplexityHistory []PerplexityPoint `yaml:"perplexity_history,omitempty"`
}

// Save atomically writes m as YAML to <dir>/checkpoint-<iteration>.yaml:
// first to a temp file in the same directory, then renamed into place,
// so a reader never observes a partially written manifest.
func Save(dir string, m Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal manifest: %w", err)
	}

	target := filepath.Join(dir, fmt.Sprintf("checkpoint-%06d.yaml", m.Iteration))
	tmp, err := os.CreateTemp(dir, "checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}

// Load reads and parses the manifest at path.
func Load(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("checkpoint: parse %s: %w", path, err)
	}
	return m, nil
}

// Latest returns the path of the checkpoint with the highest iteration
// number in dir, or "" if dir contains none.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("checkpoint: list %s: %w", dir, err)
	}
	var best string
	var bestIter int = -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var iter int
		if _, err := fmt.Sscanf(e.Name(), "checkpoint-%06d.yaml", &iter); err != nil {
			continue
		}
		if iter > bestIter {
			bestIter = iter
			best = filepath.Join(dir, e.Name())
		}
	}
	return best, nil
}
