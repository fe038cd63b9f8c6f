package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIterationMetrics_RecordAndSummarize(t *testing.T) {
	tmpDir := t.TempDir()
	metrics := NewIterationMetrics(tmpDir)

	metrics.RecordIteration("sample", 1, 45.5)
	metrics.RecordIteration("counter-update", 1, 12.3)
	metrics.RecordIteration("sample", 2, 67.8)
	metrics.RecordIteration("perplexity", 2, 234.5)
	metrics.RecordIteration("counter-update", 2, 8.9)

	summary := metrics.Summarize()

	if summary.TotalSamples != 5 {
		t.Errorf("Expected 5 total samples, got %d", summary.TotalSamples)
	}

	if sampleStats, ok := summary.ByPhase["sample"]; ok {
		if sampleStats.Count != 2 {
			t.Errorf("Expected 2 sample phases, got %d", sampleStats.Count)
		}
	} else {
		t.Error("Expected sample in ByPhase stats")
	}

	if summary.P50Duration <= 0 {
		t.Error("Expected P50 duration > 0")
	}
	if summary.P95Duration <= 0 {
		t.Error("Expected P95 duration > 0")
	}
	if summary.P99Duration <= 0 {
		t.Error("Expected P99 duration > 0")
	}

	if summary.MinDuration != 8.9 {
		t.Errorf("Expected min duration 8.9, got %.1f", summary.MinDuration)
	}
	if summary.MaxDuration != 234.5 {
		t.Errorf("Expected max duration 234.5, got %.1f", summary.MaxDuration)
	}
}

func TestIterationMetrics_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	metricsPath := filepath.Join(tmpDir, "iteration_metrics.json")

	metrics1 := NewIterationMetrics(tmpDir)
	metrics1.RecordIteration("sample", 1, 123.45)
	metrics1.RecordIteration("counter-update", 1, 67.89)

	if err := metrics1.SaveMetrics(); err != nil {
		t.Fatalf("Failed to save metrics: %v", err)
	}

	if _, err := os.Stat(metricsPath); os.IsNotExist(err) {
		t.Fatal("Metrics file was not created")
	}

	// A resumed run picks up the prior run's history instead of starting a
	// disconnected series.
	metrics2 := NewIterationMetrics(tmpDir)

	if len(metrics2.metrics) != 2 {
		t.Errorf("Expected 2 loaded metrics, got %d", len(metrics2.metrics))
	}

	summary := metrics2.Summarize()
	if summary.TotalSamples != 2 {
		t.Errorf("Expected 2 total samples in loaded metrics, got %d", summary.TotalSamples)
	}
}

func TestIterationMetrics_TimePhase(t *testing.T) {
	tmpDir := t.TempDir()
	metrics := NewIterationMetrics(tmpDir)

	result := metrics.TimePhase("sample", 1, func() interface{} {
		time.Sleep(10 * time.Millisecond)
		return "success"
	})

	if result != "success" {
		t.Errorf("Expected result 'success', got %v", result)
	}

	summary := metrics.Summarize()
	if summary.TotalSamples != 1 {
		t.Errorf("Expected 1 phase recorded, got %d", summary.TotalSamples)
	}

	if summary.AvgDuration < 10.0 {
		t.Errorf("Expected duration >= 10ms, got %.2fms", summary.AvgDuration)
	}
}

func TestIterationMetrics_SlowestIterations(t *testing.T) {
	tmpDir := t.TempDir()
	metrics := NewIterationMetrics(tmpDir)

	metrics.RecordIteration("sample", 1, 5.0)
	metrics.RecordIteration("sample", 2, 8.0)
	metrics.RecordIteration("sample", 3, 12.0)
	metrics.RecordIteration("partition", 10, 150.0)
	metrics.RecordIteration("partition", 20, 200.0)

	summary := metrics.Summarize()

	if len(summary.SlowestIterations) != 5 {
		t.Errorf("Expected 5 slowest entries (fewer than the top-10 cap), got %d", len(summary.SlowestIterations))
	}

	if summary.SlowestIterations[0].Duration != 200.0 {
		t.Errorf("Expected slowest entry at 200ms, got %.1fms", summary.SlowestIterations[0].Duration)
	}
	if summary.SlowestIterations[0].Iteration != 20 {
		t.Errorf("Expected slowest entry from iteration 20, got %d", summary.SlowestIterations[0].Iteration)
	}
}

func TestIterationMetrics_Percentiles(t *testing.T) {
	tmpDir := t.TempDir()
	metrics := NewIterationMetrics(tmpDir)

	for i := 1; i <= 100; i++ {
		metrics.RecordIteration("sample", i, float64(i))
	}

	summary := metrics.Summarize()

	if summary.P50Duration < 48.0 || summary.P50Duration > 52.0 {
		t.Errorf("Expected P50 around 50, got %.1f", summary.P50Duration)
	}

	if summary.P95Duration < 93.0 || summary.P95Duration > 97.0 {
		t.Errorf("Expected P95 around 95, got %.1f", summary.P95Duration)
	}

	if summary.P99Duration < 97.0 || summary.P99Duration > 101.0 {
		t.Errorf("Expected P99 around 99, got %.1f", summary.P99Duration)
	}
}
