package pipeline

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/config"
	"github.com/ArqamWaheed/submissionUpdater/match"
	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/ArqamWaheed/submissionUpdater/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func course(code, title, credits string) models.Course {
	return models.Course{
		Code:    models.String(code),
		Title:   models.String(title),
		Credits: models.String(credits),
	}
}

func term(name string, courses ...models.Course) models.Term {
	return models.Term{Name: name, Courses: courses}
}

type blockingComparer struct {
	blockCh chan struct{}
}

func (bc *blockingComparer) Term(p match.Pair) models.TermReport {
	<-bc.blockCh
	return models.TermReport{Name: p.Name()}
}

func TestPipelineReportOrderAndDedup(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewPipeline(context.Background(), reconcile.New(reconcile.DefaultOptions()), cfg)
	p.Start(4)

	live := []models.Term{
		term("Semester 1", course("CS101", "Intro to Computing", "3")),
		term("Semester 2", course("CS102", "Programming", "4")),
		term("Semester 3", course("CS201", "Data Structures", "3")),
	}
	reference := []models.Term{
		term("Semester I", course("CS101", "Intro to Computing", "3")),
		term("Semester II", course("CS102", "Programming", "3")),
		term("Semester III", course("CS201", "Data Structures", "3")),
	}
	pairs := match.Terms(live, reference)

	if err := p.Process(pairs...); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(pairs[0]); err != nil {
		t.Fatalf("process duplicate: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	report := p.Report(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	if len(report.Terms) != 3 {
		t.Fatalf("terms = %d, want 3", len(report.Terms))
	}
	for i, want := range []string{"Semester 1", "Semester 2", "Semester 3"} {
		if got := report.Terms[i].Name; got != want {
			t.Fatalf("term %d = %q, want %q", i, got, want)
		}
	}
	if got := report.Terms[1].DiffCount; got != 2 {
		t.Fatalf("semester 2 diffs = %d, want 2 (missing and extra)", got)
	}

	metrics := p.GetMetrics()
	if got := metrics["processed_pairs"].(int64); got != 3 {
		t.Fatalf("processed pairs = %d, want 3", got)
	}
	if got := metrics["total_diffs"].(int); got != 2 {
		t.Fatalf("total diffs = %d, want 2", got)
	}
	validation := metrics["validation_errors"].(map[string]int)
	if validation["duplicate_pair"] != 1 {
		t.Fatalf("expected one duplicate_pair, got %v", validation)
	}
}

func TestPipelineSkipsQuietUnmatchedReference(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewPipeline(context.Background(), reconcile.New(reconcile.DefaultOptions()), cfg)
	p.Start(2)

	pairs := match.Terms(
		[]models.Term{term("Semester 1", course("CS101", "Intro", "3"))},
		[]models.Term{
			term("Semester 1", course("CS101", "Intro", "3")),
			term("Pre-Medical Electives"),
			term("Summer", course("SS100", "Internship", "0")),
		},
	)
	if err := p.Process(pairs...); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	report := p.Report(time.Now())
	if len(report.Terms) != 2 {
		t.Fatalf("terms = %d, want 2", len(report.Terms))
	}
	unmatched := report.Terms[1]
	if unmatched.Name != match.UnmatchedLabel+"Summer" {
		t.Fatalf("unmatched name = %q", unmatched.Name)
	}
	if unmatched.DiffCount != 1 || unmatched.Diffs[0].Type != models.DiffMissing {
		t.Fatalf("unmatched diffs = %+v, want one missing", unmatched.Diffs)
	}
}

func TestPipelineKeepsTermsWithRepeatedNames(t *testing.T) {
	engine := reconcile.New(reconcile.DefaultOptions())
	pairs := match.Terms(
		[]models.Term{
			term("Electives", course("CS401", "Compiler Construction", "3")),
			term("Electives", course("CS402", "Computer Graphics", "3")),
		},
		nil,
	)

	p := NewPipeline(context.Background(), engine, config.DefaultConfig())
	p.Start(2)
	if err := p.Process(pairs...); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	comparedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	got := p.Report(comparedAt)
	want := engine.Report(pairs, comparedAt)
	if len(got.Terms) != 2 || got.TotalDiffs() != want.TotalDiffs() {
		t.Fatalf("pipeline terms=%d diffs=%d, sequential terms=%d diffs=%d",
			len(got.Terms), got.TotalDiffs(), len(want.Terms), want.TotalDiffs())
	}
	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["duplicate_pair"] != 0 {
		t.Fatalf("distinct pairs counted as duplicates: %v", validation)
	}
}

func TestPipelineCloseDrainsPendingItems(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PipelineBufferSize = 4
	p := NewPipeline(context.Background(), reconcile.New(reconcile.DefaultOptions()), cfg)
	p.Start(2)

	for i := 0; i < 100; i++ {
		name := "Semester " + strconv.Itoa(i+1)
		pair := match.Pair{
			Live:      term(name, course("CS"+strconv.Itoa(100+i), "Course", "3")),
			Reference: term(name, course("CS"+strconv.Itoa(100+i), "Course", "3")),
			Rule:      match.RuleExact,
		}
		if err := p.Process(pair); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(p.Report(time.Now()).Terms); got != 100 {
		t.Fatalf("reported terms = %d, want 100", got)
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	p := NewPipeline(context.Background(), reconcile.New(reconcile.DefaultOptions()), config.DefaultConfig())
	p.Start(1)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	err := p.Process(match.Pair{Live: term("Semester 1")})
	if !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPipeline(ctx, reconcile.New(reconcile.DefaultOptions()), config.DefaultConfig())
	p.Start(1)
	cancel()

	processErr := p.Process(match.Pair{Live: term("Semester 1"), Reference: term("Semester 1")})
	closeErr := p.Close()
	if processErr == nil && closeErr == nil {
		t.Fatalf("expected cancellation to surface from Process or Close")
	}
}

func TestPipelineCloseTimeout(t *testing.T) {
	cfg := config.DefaultConfig()

	comparer := &blockingComparer{blockCh: make(chan struct{})}
	p := NewPipeline(context.Background(), comparer, cfg)
	p.Start(1)

	if err := p.Process(match.Pair{Live: term("Blocked"), Reference: term("Blocked")}); err != nil {
		t.Fatalf("process: %v", err)
	}

	previousTimeout := drainTimeout
	drainTimeout = 25 * time.Millisecond
	t.Cleanup(func() {
		drainTimeout = previousTimeout
		close(comparer.blockCh)
	})

	if err := p.Close(); err == nil || !errors.Is(err, ErrPipelineCloseTimeout) {
		t.Fatalf("expected close timeout error, got %v", err)
	}
}

func TestPipelineRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPipeline(context.Background(), reconcile.New(reconcile.DefaultOptions()), config.DefaultConfig())
	if err := p.RegisterMetrics(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	p.Start(1)

	pair := match.Pair{
		Live:      term("Semester 1", course("CS101", "Intro", "3")),
		Reference: term("Semester 1", course("CS101", "Intro", "3"), course("MT101", "Calculus", "3")),
		Rule:      match.RuleExact,
	}
	if err := p.Process(pair); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := testutil.ToFloat64(p.prom.pairsTotal); got != 1 {
		t.Fatalf("pairs counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.prom.diffsTotal.WithLabelValues(string(models.DiffMissing))); got != 1 {
		t.Fatalf("missing counter = %v, want 1", got)
	}

	other := NewPipeline(context.Background(), reconcile.New(reconcile.DefaultOptions()), config.DefaultConfig())
	if err := other.RegisterMetrics(reg); err == nil {
		t.Fatalf("registering twice on one registry should fail")
	}
}
