// Package pipeline classifies a batch of studies with a pool of workers and
// appends the audits it finds to an audit list.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/algorithm-audits/audits/internal/audit"
	"github.com/algorithm-audits/audits/internal/ledger"
)

const (
	// DefaultWorkers is the number of concurrent model requests.
	DefaultWorkers = 8

	// DefaultProgressEvery is how many completions pass between progress logs.
	DefaultProgressEvery = 100
)

// Classifier decides whether a study is an audit and extracts its fields.
type Classifier interface {
	Classify(ctx context.Context, s audit.Study) (bool, error)
	Extract(ctx context.Context, s audit.Study) (audit.Extraction, error)
}

// Sink receives audit rows. Append must be safe for concurrent use.
type Sink interface {
	Append(row audit.PatchRow) error
}

// Recorder stores per-study outcomes for resuming.
type Recorder interface {
	Record(ctx context.Context, o ledger.Outcome) error
}

// Task is a study and its position in the input file.
type Task struct {
	Index int
	Study audit.Study
}

// Summary reports what a run did.
type Summary struct {
	RunID     string `json:"run_id,omitempty"`
	Total     int    `json:"total"`
	Skipped   int    `json:"skipped"`
	Remaining int    `json:"remaining"`
	Processed int    `json:"processed"`
	Audits    int    `json:"audits"`
	Failures  int    `json:"failures"`
}

// Pipeline runs classification over studies.
type Pipeline struct {
	classifier    Classifier
	sink          Sink
	recorder      Recorder
	logger        *zap.Logger
	progress      io.Writer
	workers       int
	progressEvery int
	runID         string

	printMu sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the worker count. Values below one mean one.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// WithProgressEvery sets how often a progress summary is logged.
// Zero disables it.
func WithProgressEvery(n int) Option {
	return func(p *Pipeline) {
		p.progressEvery = n
	}
}

// WithRecorder stores each outcome under runID.
func WithRecorder(r Recorder, runID string) Option {
	return func(p *Pipeline) {
		p.recorder = r
		p.runID = runID
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithProgressWriter receives one YES/NO line per study.
func WithProgressWriter(w io.Writer) Option {
	return func(p *Pipeline) {
		p.progress = w
	}
}

// New creates a pipeline that sends audits to sink.
func New(classifier Classifier, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier:    classifier,
		sink:          sink,
		logger:        zap.L(),
		progress:      io.Discard,
		workers:       DefaultWorkers,
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan drops studies whose titles are already in done and applies limit
// (zero means no limit). It returns the remaining tasks and the skip count.
func Plan(studies []audit.Study, done TitleSet, limit int) ([]Task, int) {
	var (
		tasks   []Task
		skipped int
	)
	for i, s := range studies {
		if done.Done(s.Title) {
			skipped++
			continue
		}
		if limit > 0 && len(tasks) >= limit {
			continue
		}
		tasks = append(tasks, Task{Index: i, Study: s})
	}
	return tasks, skipped
}

// Run processes tasks concurrently. total is the size of the full input and
// only affects progress lines. A failing classifier call counts as "not an
// audit" and a failing extraction leaves the fields blank; neither stops the
// run. Sink and recorder errors do.
func (p *Pipeline) Run(ctx context.Context, tasks []Task, total int) (Summary, error) {
	var processed, audits, failures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, task := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			isAudit, failed, err := p.process(gctx, task, total)
			if err != nil {
				return err
			}
			if failed {
				failures.Add(1)
			}
			if isAudit {
				audits.Add(1)
			}
			done := processed.Add(1)
			if p.progressEvery > 0 && done%int64(p.progressEvery) == 0 {
				p.logger.Info("classification progress",
					zap.Int64("processed", done),
					zap.Int("remaining", len(tasks)),
					zap.Int64("audits", audits.Load()),
				)
			}
			return nil
		})
	}

	err := g.Wait()
	summary := Summary{
		RunID:     p.runID,
		Total:     total,
		Remaining: len(tasks),
		Processed: int(processed.Load()),
		Audits:    int(audits.Load()),
		Failures:  int(failures.Load()),
	}
	if err == nil {
		err = ctx.Err()
	}
	return summary, err
}

// process handles one study. failed reports a collaborator error that was
// replaced by a default.
func (p *Pipeline) process(ctx context.Context, task Task, total int) (isAudit, failed bool, err error) {
	s := task.Study
	n := task.Index + 1

	isAudit, cerr := p.classifier.Classify(ctx, s)
	if cerr != nil {
		if ctx.Err() != nil {
			return false, false, ctx.Err()
		}
		p.logger.Warn("classification failed", zap.String("title", s.Title), zap.Error(cerr))
		isAudit, failed = false, true
	}

	if !isAudit {
		p.println(FormatNo(n, total, s.Title))
		return false, failed, p.record(ctx, s.Title, false, "")
	}

	ext, xerr := p.classifier.Extract(ctx, s)
	if xerr != nil {
		if ctx.Err() != nil {
			return false, false, ctx.Err()
		}
		p.logger.Warn("extraction failed", zap.String("title", s.Title), zap.Error(xerr))
		ext, failed = audit.Extraction{}, true
	}

	row := audit.NewPatchRow(s, ext)
	p.println(FormatYes(n, total, s.Title, ext.Domain))
	if err := p.sink.Append(row); err != nil {
		return true, failed, eris.Wrap(err, "writing audit row")
	}
	return true, failed, p.record(ctx, s.Title, true, ext.Domain)
}

func (p *Pipeline) record(ctx context.Context, title string, isAudit bool, domain string) error {
	if p.recorder == nil {
		return nil
	}
	err := p.recorder.Record(ctx, ledger.Outcome{
		RunID:   p.runID,
		Title:   title,
		IsAudit: isAudit,
		Domain:  domain,
	})
	if err != nil {
		return eris.Wrap(err, "recording progress")
	}
	return nil
}

func (p *Pipeline) println(line string) {
	p.printMu.Lock()
	defer p.printMu.Unlock()
	fmt.Fprintln(p.progress, line)
}
