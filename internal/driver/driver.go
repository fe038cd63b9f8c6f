// Package driver wires the substrate packages (corpus, graph, sampler,
// counter, perplexity, partition, checkpoint) into the per-iteration
// sampling loop: parse, bootstrap, sample, update counters, and
// optionally checkpoint and report perplexity.
package driver

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenlda/zenlda/internal/checkpoint"
	"github.com/zenlda/zenlda/internal/config"
	"github.com/zenlda/zenlda/internal/corpus"
	"github.com/zenlda/zenlda/internal/counter"
	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/logger"
	"github.com/zenlda/zenlda/internal/model"
	"github.com/zenlda/zenlda/internal/output"
	"github.com/zenlda/zenlda/internal/partition"
	"github.com/zenlda/zenlda/internal/perplexity"
	"github.com/zenlda/zenlda/internal/posterior"
	"github.com/zenlda/zenlda/internal/sampler"
)

// maxPerplexityHistory bounds the in-memory convergence log so a very
// long run cannot grow it unbounded.
const maxPerplexityHistory = 10000

// vmblpRepartitionEvery is how often the driver runs a VMBLP round when
// config.PartStrategy is VSDLP. The cadence is otherwise unconstrained;
// every tenth iteration amortizes the repartition cost against the
// benefit of a fresher vertex cut.
const vmblpRepartitionEvery = 10

// run holds everything the iteration loop needs, assembled once by Run
// and threaded through the per-iteration helpers.
type run struct {
	cfg        *config.Config
	runID      string
	k          int
	partitions []graph.EdgePartition
	router     graph.Router
	store      graph.VertexStore
	globalNk   []int64
	totalTok   int64
	virtual    *model.VirtualTerms
	metrics    *logger.IterationMetrics
	ppPoints   []checkpoint.PerplexityPoint
}

// Run loads and validates the configuration from flags and environment,
// then executes a full sampling run: parses the corpus,
// initializes topic assignments, then iterates sample -> counter-update
// -> (optional) perplexity -> (optional) checkpoint for cfg.TotalIter
// rounds, finally persisting the model to cfg.OutputPath.
func Run(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := uuid.New().String()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx = context.WithValue(ctx, logger.AlgorithmKey, string(cfg.LDAAlgorithm))

	if _, err := os.Stat(cfg.OutputPath); err == nil {
		return &OutputExistsError{Path: cfg.OutputPath}
	}
	if err := os.MkdirAll(cfg.OutputPath, 0755); err != nil {
		return fmt.Errorf("driver: creating output path: %w", err)
	}

	logger.InfoContext(ctx, "starting sampling run", "input", cfg.InputPath, "numTopics", cfg.NumTopics, "totalIter", cfg.TotalIter, "storageLevel", cfg.StorageLevel, "useKryo", cfg.UseKryo)

	r, err := bootstrap(ctx, cfg, runID)
	if err != nil {
		return fmt.Errorf("driver: bootstrap: %w", err)
	}

	for iter := 1; iter <= cfg.TotalIter; iter++ {
		iterCtx := context.WithValue(ctx, logger.IterationKey, iter)
		if err := r.runIteration(iterCtx, iter); err != nil {
			return fmt.Errorf("driver: iteration %d: %w", iter, err)
		}
	}

	if err := r.metrics.SaveMetrics(); err != nil {
		logger.WarnContext(ctx, "failed to persist iteration metrics", "error", err)
	}

	return output.WriteModel(cfg.OutputPath, r.store, r.partitions, cfg.NumTopics, cfg.SaveTransposed, cfg.SaveAsSolid)
}

// bootstrap parses the corpus, assigns initial topics, partitions the
// edge set, and derives the initial global topic counters.
func bootstrap(ctx context.Context, cfg *config.Config, runID string) (*run, error) {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	vocab := corpus.NewVocabulary()
	seedRng := rand.New(rand.NewSource(cfg.Seed))
	c, err := corpus.Parse(f, vocab, corpus.Options{
		Format:      corpus.Format(cfg.InputFormat),
		IgnoreDocId: cfg.IgnoreDocId,
		SemiRate:    cfg.InputSemiRate,
		Rng:         seedRng,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}

	k := cfg.NumTopics
	initRng := rand.New(rand.NewSource(cfg.Seed))
	InitializeAssignments(c.Edges, k, cfg.InitStrategy, initRng)

	for _, e := range c.Edges {
		if err := corpus.ValidateOccurrences(e.DstId, e.Occurrences, k); err != nil {
			return nil, err
		}
	}

	buckets := graph.PartitionBy(c.Edges, cfg.NumPartitions, func(e *graph.EdgeRecord) int {
		return partition.DBHPartition(e.SrcId, cfg.NumPartitions)
	})
	partitions := make([]graph.EdgePartition, len(buckets))
	for i, edges := range buckets {
		partitions[i] = graph.NewMemEdgePartition(i, edges)
	}

	router := partition.NewDBHRouter(cfg.NumPartitions)

	globalNk := make([]int64, k)
	var totalTok int64
	for _, e := range c.Edges {
		for _, t := range e.Occurrences {
			globalNk[t]++
			totalTok++
		}
	}

	logger.InfoContext(ctx, "corpus parsed", "vocabSize", vocab.Size(), "numDocs", c.NumDocs, "numTokens", totalTok, "numPartitions", len(partitions))

	r := &run{
		cfg:        cfg,
		runID:      runID,
		k:          k,
		partitions: partitions,
		router:     router,
		store:      graph.NewMemVertexStore(),
		globalNk:   globalNk,
		totalTok:   totalTok,
		virtual:    markVirtualTerms(c.Edges, vocab.Size(), cfg.VirtualTermRate),
		metrics:    logger.NewIterationMetrics(cfg.OutputPath),
	}

	// Seed the vertex store from the initial topic assignment before any
	// kernel runs. Without this, every n_dk/n_kw lookup on the first
	// sampling pass hits an empty TC, and the word-by-word kernels'
	// rejection-sampling correction term divides by zero. LightLDA never
	// calls updateCounters again after this, so this is also the one
	// place its store gets populated before its in-place atomic updates
	// take over.
	r.updateCounters()

	return r, nil
}

// runIteration executes one full sample -> counter-update -> optional
// perplexity/checkpoint round.
func (r *run) runIteration(ctx context.Context, iter int) error {
	cfg := r.cfg

	global := posterior.BuildGlobal(uint32Nk(r.globalNk), r.k, cfg.Alpha, cfg.Beta, cfg.AlphaAS, r.totalTok)
	kernel := &sampler.Kernel{K: r.k, Denom: global, Store: r.store, GlobalNk: r.globalNk}

	sampleStart := time.Now()
	if err := r.sample(ctx, iter, kernel); err != nil {
		return err
	}
	r.metrics.RecordIteration("sample", iter, float64(time.Since(sampleStart).Milliseconds()))

	if cfg.LDAAlgorithm != config.LightLDA {
		updateStart := time.Now()
		r.updateCounters()
		r.metrics.RecordIteration("counter-update", iter, float64(time.Since(updateStart).Milliseconds()))
	}

	r.recomputeGlobalNk()

	if cfg.PartStrategy == config.VSDLP && iter%vmblpRepartitionEvery == 0 {
		partStart := time.Now()
		partition.RunVMBLP(r.partitions, r.router, 1, cfg.Seed, iter)
		r.partitions = partition.RepartitionBySource(r.partitions, r.router, func(id int, edges []*graph.EdgeRecord) graph.EdgePartition {
			return graph.NewMemEdgePartition(id, edges)
		})
		r.metrics.RecordIteration("partition", iter, float64(time.Since(partStart).Milliseconds()))
	}

	if cfg.CalcPerplexity && iter%cfg.SaveInterval == 0 {
		ppStart := time.Now()
		r.evaluatePerplexity(ctx, iter)
		r.metrics.RecordIteration("perplexity", iter, float64(time.Since(ppStart).Milliseconds()))
	}

	if cfg.ChkptInterval > 0 && iter%cfg.ChkptInterval == 0 {
		chkptStart := time.Now()
		err := r.checkpoint(iter)
		r.metrics.RecordIteration("checkpoint", iter, float64(time.Since(chkptStart).Milliseconds()))
		if err != nil {
			logger.WarnContext(ctx, "checkpoint failed", "error", err)
		}
	}

	return nil
}

// sample dispatches partition to the configured kernel, fanning the
// partitions out across goroutines bounded by config.TaskDeadline per
// partition.
func (r *run) sample(ctx context.Context, iter int, kernel *sampler.Kernel) error {
	cfg := r.cfg
	mhCache := sampler.NewProposalCache(r.k, 4096, cfg.Seed+int64(iter))
	var docMu sync.Map

	errs := make(chan error, len(r.partitions))
	var wg sync.WaitGroup
	for _, p := range r.partitions {
		seedCfg := sampler.SeedConfig{
			Seed:          cfg.Seed,
			Iter:          iter,
			PartitionId:   p.PartitionID(),
			NumPartitions: len(r.partitions),
			NumThreads:    cfg.NumThreads,
		}
		wg.Add(1)
		go func(p graph.EdgePartition) {
			defer wg.Done()
			done := make(chan struct{})
			go func() {
				defer close(done)
				r.samplePartition(p, kernel, cfg, seedCfg, mhCache, &docMu)
			}()
			select {
			case <-done:
			case <-time.After(cfg.TaskDeadline):
				err := &DeadlineExceededError{Partition: p.PartitionID(), Elapsed: cfg.TaskDeadline}
				logger.ErrorContext(ctx, "partition sampling deadline exceeded", "partition", p.PartitionID())
				errs <- err
			}
		}(p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// samplePartition runs the configured kernel once over every source (or
// doc) group of p, honoring config.SampleRate by thinning the occurrence
// set considered for resampling this iteration. Each call builds a pool
// of cfg.NumThreads slots seeded per (partition, thread) by
// SeedConfig.ThreadSeed, checks out one slot, and runs the kernel over
// every group of p on it: each partition is sampled by one goroutine.
func (r *run) samplePartition(p graph.EdgePartition, kernel *sampler.Kernel, cfg *config.Config, seedCfg sampler.SeedConfig, mhCache *sampler.ProposalCache, docMu *sync.Map) {
	view := thinPartition(p, cfg.SampleRate, rand.New(rand.NewSource(cfg.Seed+int64(p.PartitionID()))))

	switch cfg.LDAAlgorithm {
	case config.SparseLDA:
		flatPool := sampler.NewFlatPool(cfg.NumThreads, r.k, seedCfg)
		slot := flatPool.Checkout()
		defer flatPool.Checkin(slot)
		sampler.RunSparseLDA(view, kernel, cfg.Alpha, slot)
	case config.LightLDA:
		pool := sampler.NewPool(cfg.NumThreads, r.k, seedCfg, sampler.AccelMethod(cfg.AccelMethod))
		slot := pool.Checkout()
		defer pool.Checkin(slot)
		sampler.RunLightLDA(view, kernel, slot, mhCache, cfg.Alpha, cfg.Beta, func(docId uint64) *sync.Mutex {
			mu, _ := docMu.LoadOrStore(docId, &sync.Mutex{})
			return mu.(*sync.Mutex)
		})
	case config.ZenSemiLDA:
		pool := sampler.NewPool(cfg.NumThreads, r.k, seedCfg, sampler.AccelMethod(cfg.AccelMethod))
		slot := pool.Checkout()
		defer pool.Checkin(slot)
		sampler.RunWordByWord(view, kernel, slot, sampler.ZenSemiLDA, r.virtual)
	default: // ZenLDA
		pool := sampler.NewPool(cfg.NumThreads, r.k, seedCfg, sampler.AccelMethod(cfg.AccelMethod))
		slot := pool.Checkout()
		defer pool.Checkin(slot)
		sampler.RunWordByWord(view, kernel, slot, sampler.ZenLDA, r.virtual)
	}
}

// updateCounters runs the counter-update phase: ship every partition's
// partial counts, merge them into a fresh aggregate, commit the
// aggregate into the vertex store, and invalidate every partition's
// vertex-attribute cache.
func (r *run) updateCounters() {
	agg := counter.NewAggregator()
	var wg sync.WaitGroup
	for _, p := range r.partitions {
		wg.Add(1)
		go func(p graph.EdgePartition) {
			defer wg.Done()
			for _, partial := range counter.Ship(p, r.k) {
				agg.MergePartial(partial)
			}
		}(p)
	}
	wg.Wait()
	counter.Commit(agg, r.store, r.partitions)
}

// recomputeGlobalNk rebuilds n_k from every term vertex's counts. LightLDA
// already maintains globalNk incrementally via atomic updates during
// sampling, so this only re-derives it for the word-by-word/SparseLDA
// families, which never mutate it in place.
func (r *run) recomputeGlobalNk() {
	if r.cfg.LDAAlgorithm == config.LightLDA {
		return
	}
	nk := make([]int64, r.k)
	var total int64
	r.store.Range(func(id uint64, tc *model.TC) bool {
		if !model.IsTermId(id) {
			return true
		}
		idx, val := tc.SparsePairs()
		for i, t := range idx {
			nk[t] += int64(val[i])
			total += int64(val[i])
		}
		return true
	})
	r.globalNk = nk
	r.totalTok = total
}

func (r *run) evaluatePerplexity(ctx context.Context, iter int) {
	global := posterior.BuildGlobal(uint32Nk(r.globalNk), r.k, r.cfg.Alpha, r.cfg.Beta, r.cfg.AlphaAS, r.totalTok)
	cache := perplexity.NewDocDenomCache()
	parts := make([]perplexity.PartitionSums, len(r.partitions))
	var wg sync.WaitGroup
	for i, p := range r.partitions {
		wg.Add(1)
		go func(i int, p graph.EdgePartition) {
			defer wg.Done()
			parts[i] = perplexity.Evaluate(p, r.store, global, r.cfg.Alpha, r.cfg.Beta, cache)
		}(i, p)
	}
	wg.Wait()

	total := perplexity.Reduce(parts)
	value := perplexity.Perplexity(total)

	delta := 0.0
	if len(r.ppPoints) > 0 {
		delta = value - r.ppPoints[len(r.ppPoints)-1].Value
	}
	r.ppPoints = append(r.ppPoints, checkpoint.PerplexityPoint{Iteration: iter, Value: value})
	if len(r.ppPoints) > maxPerplexityHistory {
		r.ppPoints = r.ppPoints[len(r.ppPoints)-maxPerplexityHistory:]
	}

	logger.InfoContext(ctx, "perplexity", "value", value, "delta", delta, "wordPerplexity", perplexity.WordPerplexity(total), "docPerplexity", perplexity.DocPerplexity(total))
}

func (r *run) checkpoint(iter int) error {
	vertexCounts := make([]int, len(r.partitions))
	r.store.Range(func(id uint64, tc *model.TC) bool {
		vertexCounts[r.router.PartitionOf(id)]++
		return true
	})
	dir := filepath.Join(r.cfg.OutputPath, "checkpoints")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return checkpoint.Save(dir, checkpoint.Manifest{
		RunID:             r.runID,
		Iteration:         iter,
		Seed:              r.cfg.Seed,
		NumPartitions:     len(r.partitions),
		NumTopics:         r.k,
		PartitionVertices: vertexCounts,
		PerplexityHistory: r.ppPoints,
	})
}

func uint32Nk(nk []int64) []uint32 {
	out := make([]uint32, len(nk))
	for i, v := range nk {
		out[i] = uint32(v)
	}
	return out
}
