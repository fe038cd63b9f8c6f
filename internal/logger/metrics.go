package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// IterationMetrics tracks per-phase timing across the iterations of one
// sampling run: sample, counter-update, partition, perplexity, checkpoint.
// Unlike a long-running service's metrics collector, there is no calendar
// windowing here -- a run has a start and an end, and the interesting
// summary is "how did this run's phases behave", not "what happened in the
// last hour".
type IterationMetrics struct {
	mu          sync.RWMutex
	metrics     []PhaseMetric
	metricsPath string
}

// PhaseMetric is one phase's timing within one iteration.
type PhaseMetric struct {
	Phase     string    `json:"phase"`
	Iteration int       `json:"iteration"`
	Duration  float64   `json:"duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary aggregates timing across every recorded phase of a run.
type Summary struct {
	TotalSamples      int                    `json:"total_samples"`
	AvgDuration       float64                `json:"avg_duration_ms"`
	P50Duration       float64                `json:"p50_duration_ms"`
	P95Duration       float64                `json:"p95_duration_ms"`
	P99Duration       float64                `json:"p99_duration_ms"`
	MaxDuration       float64                `json:"max_duration_ms"`
	MinDuration       float64                `json:"min_duration_ms"`
	SlowestIterations []PhaseMetric          `json:"slowest_iterations"`
	ByPhase           map[string]PhaseStats  `json:"by_phase"`
}

// PhaseStats aggregates timing for one named phase (sample, counter-update,
// perplexity, partition, checkpoint).
type PhaseStats struct {
	Count       int     `json:"count"`
	AvgDuration float64 `json:"avg_duration_ms"`
	MaxDuration float64 `json:"max_duration_ms"`
	MinDuration float64 `json:"min_duration_ms"`
}

// NewIterationMetrics creates a recorder backed by a JSON file under dataDir,
// loading any history left behind by a prior run resumed from checkpoint.
func NewIterationMetrics(dataDir string) *IterationMetrics {
	metricsPath := filepath.Join(dataDir, "iteration_metrics.json")

	im := &IterationMetrics{
		metrics:     make([]PhaseMetric, 0, 1024),
		metricsPath: metricsPath,
	}

	im.loadMetrics()

	return im
}

// RecordIteration records one phase's duration in milliseconds for the
// current iteration. iteration comes from the driver's own loop counter, not
// a wall-clock timestamp, since that is what a reader profiling a run wants
// to correlate against (e.g. "iteration 40's partition phase spiked because
// VMBLP ran that round").
func (im *IterationMetrics) RecordIteration(phase string, iteration int, durationMs float64) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.metrics = append(im.metrics, PhaseMetric{
		Phase:     phase,
		Iteration: iteration,
		Duration:  durationMs,
		Timestamp: time.Now(),
	})
}

// Summarize returns a timing summary across every phase recorded so far.
func (im *IterationMetrics) Summarize() *Summary {
	im.mu.RLock()
	defer im.mu.RUnlock()

	if len(im.metrics) == 0 {
		return &Summary{ByPhase: make(map[string]PhaseStats)}
	}

	summary := &Summary{
		TotalSamples: len(im.metrics),
		ByPhase:      make(map[string]PhaseStats),
	}

	durations := make([]float64, len(im.metrics))
	totalDuration := 0.0
	minDur := im.metrics[0].Duration
	maxDur := im.metrics[0].Duration

	for i, m := range im.metrics {
		durations[i] = m.Duration
		totalDuration += m.Duration

		if m.Duration < minDur {
			minDur = m.Duration
		}
		if m.Duration > maxDur {
			maxDur = m.Duration
		}
	}

	summary.AvgDuration = totalDuration / float64(len(im.metrics))
	summary.MinDuration = minDur
	summary.MaxDuration = maxDur

	sort.Float64s(durations)
	summary.P50Duration = percentile(durations, 50)
	summary.P95Duration = percentile(durations, 95)
	summary.P99Duration = percentile(durations, 99)

	sorted := append([]PhaseMetric(nil), im.metrics...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Duration > sorted[j].Duration })
	if len(sorted) > 10 {
		sorted = sorted[:10]
	}
	summary.SlowestIterations = sorted

	phaseStats := make(map[string]*PhaseStats)
	for _, m := range im.metrics {
		stats, ok := phaseStats[m.Phase]
		if !ok {
			stats = &PhaseStats{MinDuration: m.Duration, MaxDuration: m.Duration}
			phaseStats[m.Phase] = stats
		}

		stats.Count++
		stats.AvgDuration += m.Duration

		if m.Duration < stats.MinDuration {
			stats.MinDuration = m.Duration
		}
		if m.Duration > stats.MaxDuration {
			stats.MaxDuration = m.Duration
		}
	}

	for phase, stats := range phaseStats {
		stats.AvgDuration /= float64(stats.Count)
		summary.ByPhase[phase] = *stats
	}

	return summary
}

// TimePhase runs fn, records its wall time under phase for iteration, and
// returns fn's result.
func (im *IterationMetrics) TimePhase(phase string, iteration int, fn func() interface{}) interface{} {
	start := time.Now()
	result := fn()
	im.RecordIteration(phase, iteration, float64(time.Since(start).Milliseconds()))
	return result
}

// SaveMetrics persists recorded phase timings to disk as JSON, so a run
// resumed from checkpoint can append to its own history instead of starting
// a fresh, disconnected series.
func (im *IterationMetrics) SaveMetrics() error {
	im.mu.RLock()
	defer im.mu.RUnlock()

	dir := filepath.Dir(im.metricsPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(im.metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(im.metricsPath, data, 0644)
}

func (im *IterationMetrics) loadMetrics() error {
	data, err := os.ReadFile(im.metricsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return json.Unmarshal(data, &im.metrics)
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}

	index := float64(len(sorted)-1) * float64(p) / 100.0
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
