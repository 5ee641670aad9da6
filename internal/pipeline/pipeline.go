// Package pipeline drives the ingestion run end to end: collect the
// candidate catalog, fetch per-id detail under the rate limit, persist
// each record transactionally, checkpoint progress, then build the search
// index and validate the result.
//
// Execution is strictly sequential on one control flow. The rate limiter
// already bounds achievable throughput well below what parallel fetchers
// could exploit, and a single flow keeps checkpoint consistency trivial.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nutridb/internal/catalog"
	"github.com/fyrsmithlabs/nutridb/internal/checkpoint"
	"github.com/fyrsmithlabs/nutridb/internal/fdc"
	"github.com/fyrsmithlabs/nutridb/internal/nutrient"
	"github.com/fyrsmithlabs/nutridb/internal/ratelimit"
	"github.com/fyrsmithlabs/nutridb/internal/store"
	"github.com/fyrsmithlabs/nutridb/internal/validate"
)

const instrumentationName = "github.com/fyrsmithlabs/nutridb/internal/pipeline"

// ErrInterrupted means the run was stopped by cancellation and a resumable
// checkpoint was saved.
var ErrInterrupted = errors.New("run interrupted, checkpoint saved")

// State is the pipeline lifecycle state.
type State string

const (
	StateInit        State = "init"
	StateCollecting  State = "collecting"
	StateFetching    State = "fetching"
	StateFinalizing  State = "finalizing"
	StateValidating  State = "validating"
	StateDone        State = "done"
	StateInterrupted State = "interrupted"
	StateFailed      State = "failed"
)

// Client is the remote API surface the pipeline consumes.
type Client interface {
	Search(ctx context.Context, query string, page, pageSize int) ([]fdc.FoodSummary, int, error)
	Food(ctx context.Context, fdcID int64) (*fdc.Food, error)
}

// Config configures a run.
type Config struct {
	// TargetCount bounds the number of completed records for this run.
	// 0 means all collected candidates.
	TargetCount int

	// Resume loads the existing checkpoint instead of starting fresh.
	Resume bool

	// SaveEvery is the checkpoint interval in successfully processed
	// records. Default: 50.
	SaveEvery int

	// Query narrows the catalog search; empty means all records.
	Query string

	// PageSize is the search page size. Default: 200.
	PageSize int

	// LockPath, when set, is an advisory lock file acquired for the
	// duration of the run to block concurrent invocations.
	LockPath string

	// Validation overrides the validator thresholds.
	Validation *validate.Config
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SaveEvery == 0 {
		c.SaveEvery = 50
	}
	if c.PageSize == 0 {
		c.PageSize = 200
	}
}

// Result summarizes a finished run.
type Result struct {
	State       State
	Candidates  int
	Completed   int
	Failed      int
	SuccessRate float64
	Validation  *validate.Report
}

// Pipeline is the single-process ingestion driver.
type Pipeline struct {
	config      *Config
	client      Client
	limiter     *ratelimit.Limiter
	store       *store.Store
	checkpoints *checkpoint.Store
	logger      *zap.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	recordCounter  metric.Int64Counter
	failureCounter metric.Int64Counter

	state      State
	progress   *checkpoint.Progress
	candidates int
}

// New creates a pipeline. All collaborators are required.
func New(cfg *Config, client Client, limiter *ratelimit.Limiter, st *store.Store, cps *checkpoint.Store, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if client == nil {
		return nil, errors.New("API client is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	if cps == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		config:      cfg,
		client:      client,
		limiter:     limiter,
		store:       st,
		checkpoints: cps,
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		meter:       otel.Meter(instrumentationName),
		state:       StateInit,
	}

	p.initMetrics()

	return p, nil
}

func (p *Pipeline) initMetrics() {
	var err error

	p.recordCounter, err = p.meter.Int64Counter(
		"nutridb.pipeline.records_total",
		metric.WithDescription("Total number of records fully persisted"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		p.logger.Warn("failed to create record counter", zap.Error(err))
	}

	p.failureCounter, err = p.meter.Int64Counter(
		"nutridb.pipeline.failures_total",
		metric.WithDescription("Total number of per-record failures"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		p.logger.Warn("failed to create failure counter", zap.Error(err))
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes the full ingestion pass. On cancellation it saves a
// resumable checkpoint and returns ErrInterrupted. Setup errors abort
// before any state is touched.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	if p.config.LockPath != "" {
		lock, err := acquireLock(p.config.LockPath)
		if err != nil {
			p.state = StateFailed
			return nil, err
		}
		defer func() {
			if err := lock.release(); err != nil {
				p.logger.Warn("failed to release lock file", zap.Error(err))
			}
		}()
	}

	if err := p.setup(); err != nil {
		p.state = StateFailed
		return nil, err
	}

	candidates, err := p.collect(ctx)
	if err != nil {
		return nil, p.fail(err)
	}

	if err := p.fetch(ctx, candidates); err != nil {
		if errors.Is(err, ErrInterrupted) {
			p.state = StateInterrupted
			return p.result(), err
		}
		return nil, p.fail(err)
	}

	if err := p.finalize(); err != nil {
		return nil, p.fail(err)
	}

	report, err := p.validateRun()
	if err != nil {
		return nil, p.fail(err)
	}

	p.state = StateDone
	res := p.result()
	res.Validation = report

	span.SetAttributes(
		attribute.Int("completed", res.Completed),
		attribute.Int("failed", res.Failed),
	)

	p.logger.Info("run complete",
		zap.Int("candidates", res.Candidates),
		zap.Int("completed", res.Completed),
		zap.Int("failed", res.Failed),
		zap.Float64("success_rate", res.SuccessRate),
		zap.Bool("validation_passed", report.Passed),
	)

	return res, nil
}

// setup loads or creates the progress record and seeds the nutrient
// catalog. Failures here abort before any API call is made.
func (p *Pipeline) setup() error {
	if p.config.Resume {
		loaded, err := p.checkpoints.Load()
		switch {
		case err == nil:
			p.progress = loaded
			p.progress.Status = checkpoint.StatusInProgress
			p.progress.EndedAt = nil
			p.logger.Info("resuming from checkpoint",
				zap.String("run_id", loaded.RunID),
				zap.Int("completed", len(loaded.CompletedIDs)),
				zap.Int("failed", len(loaded.FailedIDs)),
			)
		case errors.Is(err, checkpoint.ErrNotFound):
			p.logger.Info("no checkpoint found, starting fresh")
			p.progress = checkpoint.NewProgress(p.config.TargetCount)
		default:
			// Corruption included: restarting from zero would duplicate
			// already-billed API calls.
			return fmt.Errorf("load checkpoint: %w", err)
		}
	} else {
		p.progress = checkpoint.NewProgress(p.config.TargetCount)
	}

	if err := p.store.SeedNutrients(nutrient.Catalog()); err != nil {
		return fmt.Errorf("seed nutrient catalog: %w", err)
	}

	return nil
}

func (p *Pipeline) collect(ctx context.Context) ([]fdc.FoodSummary, error) {
	p.state = StateCollecting

	collector, err := catalog.NewCollector(&catalog.Config{
		Query:    p.config.Query,
		PageSize: p.config.PageSize,
	}, p.client, p.logger)
	if err != nil {
		return nil, err
	}

	candidates, err := collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect catalog: %w", err)
	}
	p.candidates = len(candidates)

	p.recordCallState()
	return candidates, nil
}

// fetch resolves detail for every candidate not already seen by a prior
// run. Per-record errors mark the id failed and never abort the pass.
func (p *Pipeline) fetch(ctx context.Context, candidates []fdc.FoodSummary) error {
	p.state = StateFetching

	pending := make([]fdc.FoodSummary, 0, len(candidates))
	for _, c := range candidates {
		if !p.progress.Seen(c.FDCID) {
			pending = append(pending, c)
		}
	}

	p.logger.Info("fetching details",
		zap.Int("candidates", len(candidates)),
		zap.Int("pending", len(pending)),
		zap.Int("already_seen", len(candidates)-len(pending)),
	)

	sinceSave := 0
	for i, summary := range pending {
		if err := ctx.Err(); err != nil {
			return p.interrupt(err)
		}
		if p.config.TargetCount > 0 && len(p.progress.CompletedIDs) >= p.config.TargetCount {
			p.logger.Info("target count reached", zap.Int("target", p.config.TargetCount))
			break
		}

		if p.processOne(ctx, summary, i+1, len(pending)) {
			sinceSave++
		}

		if sinceSave >= p.config.SaveEvery {
			if err := p.checkpoints.Save(p.progress); err != nil {
				return fmt.Errorf("periodic checkpoint save: %w", err)
			}
			sinceSave = 0
			p.logger.Info("checkpoint saved",
				zap.Int("completed", len(p.progress.CompletedIDs)),
				zap.Int("failed", len(p.progress.FailedIDs)),
			)
		}
	}

	return nil
}

// processOne fetches, maps and persists a single candidate. Returns true
// on success; failures are recorded in the progress sets.
func (p *Pipeline) processOne(ctx context.Context, summary fdc.FoodSummary, seq, total int) bool {
	detail, err := p.client.Food(ctx, summary.FDCID)
	p.recordCallState()
	if err != nil {
		// A cancellation mid-fetch is an interrupted run, not a failed
		// record. Leave the id out of both sets so a resumed run
		// fetches it again.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		p.markFailed(summary.FDCID, "fetch", err)
		return false
	}

	values := nutrient.MapProfile(detail.FDCID, detail.Nutrients)
	food := store.Food{
		FDCID:       detail.FDCID,
		Description: detail.Description,
		// The search-result description doubles as the display name.
		CommonName: summary.Description,
		Category:   detail.CategoryDescription(),
	}

	if err := p.store.UpsertFood(food, values); err != nil {
		p.markFailed(summary.FDCID, "persist", err)
		return false
	}

	p.progress.MarkCompleted(summary.FDCID)
	if p.recordCounter != nil {
		p.recordCounter.Add(ctx, 1)
	}

	p.logger.Debug("persisted food",
		zap.Int64("fdc_id", summary.FDCID),
		zap.Int("nutrients", len(values)),
		zap.Int("seq", seq),
		zap.Int("total", total),
	)
	return true
}

func (p *Pipeline) markFailed(id int64, stage string, err error) {
	p.progress.MarkFailed(id)
	if p.failureCounter != nil {
		p.failureCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("stage", stage),
		))
	}
	p.logger.Warn("record failed",
		zap.Int64("fdc_id", id),
		zap.String("stage", stage),
		zap.Error(err),
	)
}

func (p *Pipeline) finalize() error {
	p.state = StateFinalizing

	if err := p.store.Finalize(); err != nil {
		return fmt.Errorf("finalize store: %w", err)
	}

	p.progress.Finish(checkpoint.StatusCompleted)
	if err := p.checkpoints.Save(p.progress); err != nil {
		return fmt.Errorf("final checkpoint save: %w", err)
	}
	return nil
}

func (p *Pipeline) validateRun() (*validate.Report, error) {
	p.state = StateValidating

	v, err := validate.NewValidator(p.config.Validation, p.store, p.logger)
	if err != nil {
		return nil, err
	}
	report, err := v.Run()
	if err != nil {
		return nil, fmt.Errorf("validate database: %w", err)
	}
	return report, nil
}

// interrupt saves a resumable checkpoint and converts the cancellation
// into ErrInterrupted.
func (p *Pipeline) interrupt(cause error) error {
	p.progress.Finish(checkpoint.StatusInterrupted)
	if err := p.checkpoints.Save(p.progress); err != nil {
		p.logger.Error("failed to save checkpoint on interrupt", zap.Error(err))
		return fmt.Errorf("save checkpoint on interrupt: %w", err)
	}

	p.logger.Info("interrupted, checkpoint saved",
		zap.Int("completed", len(p.progress.CompletedIDs)),
		zap.Int("failed", len(p.progress.FailedIDs)),
		zap.NamedError("cause", cause),
	)
	return ErrInterrupted
}

// fail stamps a failed checkpoint (best effort) and passes the error up.
func (p *Pipeline) fail(err error) error {
	p.state = StateFailed
	if p.progress != nil {
		p.progress.Finish(checkpoint.StatusFailed)
		if saveErr := p.checkpoints.Save(p.progress); saveErr != nil {
			p.logger.Error("failed to save checkpoint after failure", zap.Error(saveErr))
		}
	}
	return err
}

// recordCallState snapshots the limiter into the progress record after
// API activity.
func (p *Pipeline) recordCallState() {
	windowStart, calls, lastCall := p.limiter.Snapshot()
	if lastCall.IsZero() {
		return
	}
	p.progress.RecordCall(lastCall, windowStart, calls)
}

func (p *Pipeline) result() *Result {
	return &Result{
		State:       p.state,
		Candidates:  p.candidates,
		Completed:   len(p.progress.CompletedIDs),
		Failed:      len(p.progress.FailedIDs),
		SuccessRate: p.progress.SuccessRate(),
	}
}
