// Package pipeline reconciles aligned term pairs on a worker pool and writes
// the resulting report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/config"
	"github.com/ArqamWaheed/submissionUpdater/match"
	"github.com/ArqamWaheed/submissionUpdater/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: timed out waiting for workers")
)

var drainTimeout = 30 * time.Second

// Comparer diffs one aligned term pair. *reconcile.Engine implements it.
type Comparer interface {
	Term(p match.Pair) models.TermReport
}

type job struct {
	seq  int
	pair match.Pair
}

type result struct {
	pair   match.Pair
	report models.TermReport
}

// Pipeline fans term pairs out to workers and reassembles their diffs in
// submission order.
type Pipeline struct {
	ctx    context.Context
	engine Comparer
	jobCh  chan job

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	resultsMu sync.Mutex
	results   map[int]result

	metrics metrics
	prom    *promMetrics

	mu      sync.Mutex // guards closed/err/nextSeq
	closed  bool
	err     error
	nextSeq int

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg.
func NewPipeline(ctx context.Context, engine Comparer, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	bufferSize := cfg.PipelineBufferSize
	if bufferSize <= 0 {
		bufferSize = 1
	}
	dedupeSize := cfg.DedupeMaxSize
	if dedupeSize <= 0 {
		dedupeSize = 1
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		// lru.New only fails for non-positive sizes, ruled out above.
		panic(fmt.Sprintf("pipeline: dedupe cache: %v", err))
	}

	return &Pipeline{
		ctx:      ctx,
		engine:   engine,
		jobCh:    make(chan job, bufferSize),
		seen:     seen,
		results:  make(map[int]result),
		metrics:  newMetrics(),
		shutdown: make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues pairs for comparison. A pair submitted twice (same Key)
// is skipped.
func (p *Pipeline) Process(pairs ...match.Pair) error {
	for _, pair := range pairs {
		closed, err := p.state()
		if err != nil {
			return err
		}
		if closed {
			return ErrPipelineClosed
		}

		if p.seen.Contains(pair.Key()) {
			p.metrics.addValidation("duplicate_pair")
			continue
		}
		p.seen.Add(pair.Key(), struct{}{})

		p.mu.Lock()
		seq := p.nextSeq
		p.nextSeq++
		p.mu.Unlock()

		if err := p.enqueue(job{seq: seq, pair: pair}); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to finish and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		close(p.jobCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.signalShutdown()
		return p.Err()
	case <-time.After(drainTimeout):
		p.signalShutdown()
		return ErrPipelineCloseTimeout
	}
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Report assembles the term reports in submission order. Unmatched
// reference terms without diffs are left out.
func (p *Pipeline) Report(comparedAt time.Time) *models.Report {
	p.resultsMu.Lock()
	seqs := make([]int, 0, len(p.results))
	for seq := range p.results {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	report := &models.Report{ComparedAt: comparedAt.UTC(), Terms: make([]models.TermReport, 0, len(seqs))}
	for _, seq := range seqs {
		r := p.results[seq]
		if r.pair.Unmatched && r.report.DiffCount == 0 {
			continue
		}
		report.Terms = append(report.Terms, r.report)
	}
	p.resultsMu.Unlock()
	return report
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("processed_pairs", metrics["processed_pairs"].(int64)),
					slog.Int("diffs", metrics["total_diffs"].(int)),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for j := range p.jobCh {
		if err := p.ctx.Err(); err != nil {
			p.setErr(fmt.Errorf("compare %q: %w", j.pair.Name(), err))
			continue
		}

		report := p.engine.Term(j.pair)

		p.resultsMu.Lock()
		p.results[j.seq] = result{pair: j.pair, report: report}
		p.resultsMu.Unlock()

		p.metrics.record(report)
		p.prom.record(report)
	}
}

func (p *Pipeline) enqueue(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobCh <- j:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	p.err = err
	p.closed = true
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	diffs      map[models.DiffType]int
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		diffs:      make(map[models.DiffType]int),
		validation: make(map[string]int),
	}
}

func (m *metrics) record(report models.TermReport) {
	m.mu.Lock()
	m.processed++
	for _, d := range report.Diffs {
		m.diffs[d.Type]++
	}
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}
	copyDiffs := make(map[string]int, len(m.diffs))
	total := 0
	for k, v := range m.diffs {
		copyDiffs[string(k)] = v
		total += v
	}

	return map[string]interface{}{
		"processed_pairs":   m.processed,
		"diffs_by_type":     copyDiffs,
		"total_diffs":       total,
		"validation_errors": copyValidation,
	}
}
