// Package config loads the command-line and environment configuration
// for a sampling run.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// LDAAlgorithm selects which sampling kernel drives each iteration.
type LDAAlgorithm string

const (
	ZenSemiLDA LDAAlgorithm = "ZenSemiLDA"
	ZenLDA     LDAAlgorithm = "ZenLDA"
	LightLDA   LDAAlgorithm = "LightLDA"
	SparseLDA  LDAAlgorithm = "SparseLDA"
)

// AccelMethod selects the discrete-sampling primitive the word-by-word
// kernels use.
type AccelMethod string

const (
	Alias  AccelMethod = "alias"
	FTree  AccelMethod = "ftree"
	Hybrid AccelMethod = "hybrid"
)

// InputFormat selects the corpus encoding.
type InputFormat string

const (
	Raw  InputFormat = "raw"
	Bow  InputFormat = "bow"
	Semi InputFormat = "semi"
)

// PartStrategy selects the initial and ongoing vertex-partitioning
// strategy. Only DBH and VSDLP (VMBLP) are implemented
// (internal/partition); byTerm/byDoc/Edge2D/BBR are parsed and validated
// but rejected at runtime with a clear error, since nothing implements
// them.
type PartStrategy string

const (
	ByTerm PartStrategy = "byTerm"
	ByDoc  PartStrategy = "byDoc"
	Edge2D PartStrategy = "Edge2D"
	DBH    PartStrategy = "DBH"
	VSDLP  PartStrategy = "VSDLP"
	BBR    PartStrategy = "BBR"
)

// InitStrategy selects how the initial topic assignment is drawn for
// unassigned occurrences.
type InitStrategy string

const (
	Random InitStrategy = "Random"
	Sparse InitStrategy = "Sparse"
	Split  InitStrategy = "Split"
)

// Config holds one run's full configuration: the required and optional
// CLI surface plus the scheduling/determinism additions (TaskDeadline,
// Seed).
type Config struct {
	// Required.
	NumTopics     int
	Alpha         float64
	Beta          float64
	AlphaAS       float64
	TotalIter     int
	NumPartitions int
	InputPath     string
	OutputPath    string

	// Options.
	SampleRate     float64
	NumThreads     int
	InputFormat    InputFormat
	InputSemiRate  float64
	LDAAlgorithm   LDAAlgorithm
	AccelMethod    AccelMethod
	StorageLevel   string
	PartStrategy   PartStrategy
	InitStrategy   InitStrategy
	ChkptInterval  int
	CalcPerplexity bool
	SaveInterval   int
	SaveTransposed bool
	SaveAsSolid    bool
	IgnoreDocId    bool
	NumClasses     int
	UseKryo        bool

	// SPEC_FULL additions.
	TaskDeadline    time.Duration
	Seed            int64
	VirtualTermRate float64
}

// ConfigError reports a validation failure, naming the offending field
// so an operator can fix their flags without re-reading this file.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Validate checks the required fields and every enum-valued option
// against its known set, the exit path for unsupported configuration
// values.
func (c *Config) Validate() *ConfigError {
	if c.NumTopics <= 0 {
		return &ConfigError{"numTopics", "must be positive"}
	}
	if c.Alpha <= 0 {
		return &ConfigError{"alpha", "must be positive"}
	}
	if c.Beta <= 0 {
		return &ConfigError{"beta", "must be positive"}
	}
	if c.AlphaAS <= 0 {
		return &ConfigError{"alphaAS", "must be positive"}
	}
	if c.TotalIter <= 0 {
		return &ConfigError{"totalIter", "must be positive"}
	}
	if c.NumPartitions <= 0 {
		return &ConfigError{"numPartitions", "must be positive"}
	}
	if c.InputPath == "" {
		return &ConfigError{"inputPath", "must be set"}
	}
	if c.OutputPath == "" {
		return &ConfigError{"outputPath", "must be set"}
	}
	if c.NumThreads <= 0 {
		return &ConfigError{"numThreads", "must be positive"}
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		return &ConfigError{"sampleRate", "must be in (0, 1]"}
	}

	switch c.InputFormat {
	case Raw, Bow, Semi:
	default:
		return &ConfigError{"inputFormat", "must be one of raw, bow, semi"}
	}
	if c.InputFormat == Semi && (c.InputSemiRate <= 0 || c.InputSemiRate > 1) {
		return &ConfigError{"inputSemiRate", "must be in (0, 1] when inputFormat=semi"}
	}

	switch c.LDAAlgorithm {
	case ZenSemiLDA, ZenLDA, LightLDA, SparseLDA:
	default:
		return &ConfigError{"LDAAlgorithm", "must be one of ZenSemiLDA, ZenLDA, LightLDA, SparseLDA"}
	}

	switch c.AccelMethod {
	case Alias, FTree, Hybrid:
	default:
		return &ConfigError{"accelMethod", "must be one of alias, ftree, hybrid"}
	}
	if c.LDAAlgorithm == SparseLDA && c.AccelMethod != Alias {
		return &ConfigError{"accelMethod", "SparseLDA always uses FlatDist and ignores accelMethod; leave it at its default"}
	}

	switch c.PartStrategy {
	case ByTerm, ByDoc, Edge2D, DBH, VSDLP, BBR:
	default:
		return &ConfigError{"partStrategy", "must be one of byTerm, byDoc, Edge2D, DBH, VSDLP, BBR"}
	}
	switch c.PartStrategy {
	case DBH, VSDLP:
	default:
		return &ConfigError{"partStrategy", "only DBH and VSDLP are implemented in this build"}
	}

	switch c.InitStrategy {
	case Random, Sparse, Split:
	default:
		return &ConfigError{"initStrategy", "must be one of Random, Sparse, Split"}
	}

	if c.ChkptInterval < 0 {
		return &ConfigError{"chkptInterval", "must be non-negative"}
	}
	if c.SaveInterval <= 0 {
		return &ConfigError{"saveInterval", "must be positive"}
	}
	if c.NumClasses < 0 {
		return &ConfigError{"numClasses", "must be non-negative"}
	}
	if c.TaskDeadline <= 0 {
		return &ConfigError{"taskDeadline", "must be positive"}
	}
	if c.VirtualTermRate < 0 || c.VirtualTermRate >= 1 {
		return &ConfigError{"virtualTermRate", "must be in [0, 1)"}
	}
	return nil
}

// Load parses command-line flags (falling back to environment variables
// for anything not passed on the command line) into a Config.
func Load() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.NumTopics, "numTopics", getEnvInt("ZENLDA_NUM_TOPICS", 100), "number of topics K")
	flag.Float64Var(&cfg.Alpha, "alpha", getEnvFloat("ZENLDA_ALPHA", 0.1), "doc-topic concentration")
	flag.Float64Var(&cfg.Beta, "beta", getEnvFloat("ZENLDA_BETA", 0.01), "term-topic concentration")
	flag.Float64Var(&cfg.AlphaAS, "alphaAS", getEnvFloat("ZENLDA_ALPHA_AS", 0.1), "asymmetric-prior hyperparameter")
	flag.IntVar(&cfg.TotalIter, "totalIter", getEnvInt("ZENLDA_TOTAL_ITER", 100), "total sampling iterations")
	flag.IntVar(&cfg.NumPartitions, "numPartitions", getEnvInt("ZENLDA_NUM_PARTITIONS", 4), "number of edge/vertex partitions")
	flag.StringVar(&cfg.InputPath, "inputPath", getEnvOrDefault("ZENLDA_INPUT_PATH", ""), "corpus input path")
	flag.StringVar(&cfg.OutputPath, "outputPath", getEnvOrDefault("ZENLDA_OUTPUT_PATH", ""), "model output directory")

	flag.Float64Var(&cfg.SampleRate, "sampleRate", getEnvFloat("ZENLDA_SAMPLE_RATE", 1.0), "fraction of occurrences resampled per iteration")
	flag.IntVar(&cfg.NumThreads, "numThreads", getEnvInt("ZENLDA_NUM_THREADS", 4), "seeded sampler slots per partition pool; each partition is sampled on one goroutine")
	flag.StringVar((*string)(&cfg.InputFormat), "inputFormat", getEnvOrDefault("ZENLDA_INPUT_FORMAT", string(Raw)), "corpus format: raw, bow, semi")
	flag.Float64Var(&cfg.InputSemiRate, "inputSemiRate", getEnvFloat("ZENLDA_INPUT_SEMI_RATE", 0.1), "semi-format expansion sampling probability")
	flag.StringVar((*string)(&cfg.LDAAlgorithm), "LDAAlgorithm", getEnvOrDefault("ZENLDA_ALGORITHM", string(ZenLDA)), "sampling kernel: ZenSemiLDA, ZenLDA, LightLDA, SparseLDA")
	flag.StringVar((*string)(&cfg.AccelMethod), "accelMethod", getEnvOrDefault("ZENLDA_ACCEL_METHOD", string(Alias)), "discrete-sampling primitive: alias, ftree, hybrid")
	flag.StringVar(&cfg.StorageLevel, "storageLevel", getEnvOrDefault("ZENLDA_STORAGE_LEVEL", "MEMORY_ONLY"), "backing-store hint, logged only")
	flag.StringVar((*string)(&cfg.PartStrategy), "partStrategy", getEnvOrDefault("ZENLDA_PART_STRATEGY", string(DBH)), "partition strategy: byTerm, byDoc, Edge2D, DBH, VSDLP, BBR")
	flag.StringVar((*string)(&cfg.InitStrategy), "initStrategy", getEnvOrDefault("ZENLDA_INIT_STRATEGY", string(Random)), "initial topic assignment strategy: Random, Sparse, Split")
	flag.IntVar(&cfg.ChkptInterval, "chkptInterval", getEnvInt("ZENLDA_CHKPT_INTERVAL", 0), "iterations between checkpoints, 0 disables")
	flag.BoolVar(&cfg.CalcPerplexity, "calcPerplexity", getEnvBool("ZENLDA_CALC_PERPLEXITY", true), "evaluate perplexity each saveInterval")
	flag.IntVar(&cfg.SaveInterval, "saveInterval", getEnvInt("ZENLDA_SAVE_INTERVAL", 10), "iterations between model/perplexity evaluation")
	flag.BoolVar(&cfg.SaveTransposed, "saveTransposed", getEnvBool("ZENLDA_SAVE_TRANSPOSED", false), "write the term-topic matrix topic-major")
	flag.BoolVar(&cfg.SaveAsSolid, "saveAsSolid", getEnvBool("ZENLDA_SAVE_AS_SOLID", false), "coalesce per-partition output into one file")
	flag.BoolVar(&cfg.IgnoreDocId, "ignoreDocId", getEnvBool("ZENLDA_IGNORE_DOC_ID", false), "corpus documents omit a leading doc id")
	flag.IntVar(&cfg.NumClasses, "numClasses", getEnvInt("ZENLDA_NUM_CLASSES", 0), "supervised class count, 0 disables")
	flag.BoolVar(&cfg.UseKryo, "useKryo", getEnvBool("ZENLDA_USE_KRYO", false), "serialization library choice; parsed and logged only, no behavioral effect")

	flag.DurationVar(&cfg.TaskDeadline, "taskDeadline", getEnvDuration("ZENLDA_TASK_DEADLINE", 90*time.Minute), "per-task watchdog timeout")
	flag.Int64Var(&cfg.Seed, "seed", getEnvInt64("ZENLDA_SEED", 1), "base RNG seed for samplers and VMBLP")
	flag.Float64Var(&cfg.VirtualTermRate, "virtualTermRate", getEnvFloat("ZENLDA_VIRTUAL_TERM_RATE", 0.0), "fraction of highest-degree terms marked virtual for ZenSemiLDA to skip, 0 disables")

	flag.Parse()
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(v, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var result int64
	if _, err := fmt.Sscanf(v, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(v, "%f", &result); err != nil {
		return defaultValue
	}
	return result
}
