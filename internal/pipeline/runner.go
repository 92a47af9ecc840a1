// Package pipeline runs one ingestion: load cursor, fetch page, persist cursor, provision, load rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
	"github.com/JakeFAU/pokeapi-ingest/internal/metrics"
)

const tracerName = "github.com/JakeFAU/pokeapi-ingest/internal/pipeline"

// CursorStore loads and saves the pagination cursor.
type CursorStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, url string) error
}

// PageFetcher fetches one listing page with its detail records.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (ingest.Page, error)
}

// Provisioner ensures the destination dataset and table exist.
type Provisioner interface {
	EnsureDataset(ctx context.Context, datasetID string) (bool, error)
	EnsureTable(ctx context.Context, datasetID, tableID string, schema ingest.Schema) (bool, error)
}

// RowLoader appends rows to a table.
type RowLoader interface {
	InsertRows(ctx context.Context, datasetID, tableID string, rows []ingest.Row) error
}

// Config controls Runner behavior.
type Config struct {
	DatasetID string
	TableID   string
	// Topic receives a RunSummary after each successful run; empty disables publishing.
	Topic string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithTracerProvider sets the provider spans are created from. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) {
		r.tracer = tp.Tracer(tracerName)
	}
}

// WithRunStore records every run, successful or not, in store.
func WithRunStore(store ingest.RunStore) Option {
	return func(r *Runner) {
		r.runs = store
	}
}

// Runner executes ingestion runs. Stages run strictly in sequence and a failure
// aborts the remaining ones without undoing earlier stages.
type Runner struct {
	cursor      CursorStore
	fetcher     PageFetcher
	provisioner Provisioner
	loader      RowLoader
	publisher   ingest.Publisher
	runs        ingest.RunStore
	clock       ingest.Clock
	idGen       ingest.IDGenerator
	tracer      trace.Tracer
	cfg         Config
	logger      *zap.Logger
}

// New constructs a Runner. The publisher may be nil.
func New(
	cursor CursorStore,
	fetcher PageFetcher,
	provisioner Provisioner,
	loader RowLoader,
	publisher ingest.Publisher,
	clock ingest.Clock,
	idGen ingest.IDGenerator,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) (*Runner, error) {
	switch {
	case cursor == nil:
		return nil, errors.New("cursor store is required")
	case fetcher == nil:
		return nil, errors.New("page fetcher is required")
	case provisioner == nil:
		return nil, errors.New("provisioner is required")
	case loader == nil:
		return nil, errors.New("row loader is required")
	case clock == nil:
		return nil, errors.New("clock is required")
	case idGen == nil:
		return nil, errors.New("id generator is required")
	case cfg.DatasetID == "" || cfg.TableID == "":
		return nil, errors.New("dataset and table are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cursor:      cursor,
		fetcher:     fetcher,
		provisioner: provisioner,
		loader:      loader,
		publisher:   publisher,
		clock:       clock,
		idGen:       idGen,
		tracer:      otel.Tracer(tracerName),
		cfg:         cfg,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run performs one ingestion. On failure the returned error is a *StageError and the
// summary holds whatever was known when the run stopped.
func (r *Runner) Run(ctx context.Context) (ingest.RunSummary, error) {
	runID, err := r.idGen.NewID()
	if err != nil {
		return ingest.RunSummary{}, fmt.Errorf("generate run id: %w", err)
	}
	summary := ingest.RunSummary{
		RunID:     runID,
		Dataset:   r.cfg.DatasetID,
		Table:     r.cfg.TableID,
		StartedAt: r.clock.Now(),
	}
	logger := r.logger.With(zap.String("run_id", runID))

	ctx, span := r.tracer.Start(ctx, "ingest.run", trace.WithAttributes(
		attribute.String("ingest.run_id", runID),
		attribute.String("ingest.dataset", r.cfg.DatasetID),
		attribute.String("ingest.table", r.cfg.TableID),
	))
	defer span.End()

	logger.Info("ingestion run started")
	err = r.execute(ctx, logger, &summary)
	summary.FinishedAt = r.clock.Now()
	r.record(ctx, logger, summary, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveRun("error")
		logger.Error("ingestion run failed", zap.Error(err))
		return summary, err
	}

	span.SetAttributes(
		attribute.Int("ingest.items_fetched", summary.ItemsFetched),
		attribute.Int("ingest.rows_inserted", summary.RowsInserted),
	)
	metrics.ObserveRun("success")
	logger.Info("ingestion run finished",
		zap.String("next_cursor", summary.NextCursor),
		zap.Int("rows_inserted", summary.RowsInserted),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	r.publish(ctx, logger, summary)
	return summary, nil
}

func (r *Runner) execute(ctx context.Context, logger *zap.Logger, summary *ingest.RunSummary) error {
	if err := r.stage(ctx, logger, StageLoadCursor, func(ctx context.Context) error {
		url, err := r.cursor.Load(ctx)
		if err != nil {
			return err
		}
		summary.Cursor = url
		logger.Info("loaded cursor", zap.String("url", url))
		return nil
	}); err != nil {
		return err
	}

	var page ingest.Page
	if err := r.stage(ctx, logger, StageFetchPage, func(ctx context.Context) error {
		var err error
		page, err = r.fetcher.FetchPage(ctx, summary.Cursor)
		if err != nil {
			return err
		}
		summary.ItemsFetched = len(page.Items)
		metrics.AddItemsFetched(len(page.Items))
		logger.Info("fetched page", zap.Int("items", len(page.Items)), zap.String("next", page.Next))
		return nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StagePersistCursor, func(ctx context.Context) error {
		if page.Next == "" {
			logger.Warn("listing has no next link; persisting an empty cursor", zap.String("url", summary.Cursor))
		}
		if err := r.cursor.Save(ctx, page.Next); err != nil {
			return err
		}
		summary.NextCursor = page.Next
		return nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, logger, StageProvision, func(ctx context.Context) error {
		if _, err := r.provisioner.EnsureDataset(ctx, r.cfg.DatasetID); err != nil {
			return err
		}
		_, err := r.provisioner.EnsureTable(ctx, r.cfg.DatasetID, r.cfg.TableID, ingest.ItemSchema)
		return err
	}); err != nil {
		return err
	}

	return r.stage(ctx, logger, StageLoad, func(ctx context.Context) error {
		rows := ingest.RowsFromItems(page.Items)
		if len(rows) == 0 {
			logger.Info("no rows to insert")
			return nil
		}
		if err := r.loader.InsertRows(ctx, r.cfg.DatasetID, r.cfg.TableID, rows); err != nil {
			return err
		}
		summary.RowsInserted = len(rows)
		metrics.AddRowsInserted(len(rows))
		logger.Info("inserted rows",
			zap.Int("rows", len(rows)),
			zap.String("dataset", r.cfg.DatasetID),
			zap.String("table", r.cfg.TableID),
		)
		return nil
	})
}

func (r *Runner) stage(ctx context.Context, logger *zap.Logger, stage Stage, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "ingest."+string(stage))
	defer span.End()

	start := r.clock.Now()
	logger.Debug("stage started", zap.String("stage", string(stage)))
	if err := fn(ctx); err != nil {
		metrics.ObserveStage(string(stage), "error", r.clock.Now().Sub(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: stage, Err: err}
	}
	metrics.ObserveStage(string(stage), "ok", r.clock.Now().Sub(start))
	logger.Debug("stage finished", zap.String("stage", string(stage)))
	return nil
}

func (r *Runner) record(ctx context.Context, logger *zap.Logger, summary ingest.RunSummary, runErr error) {
	if r.runs == nil {
		return
	}
	rec := ingest.RunRecord{
		ID:           summary.RunID,
		Status:       ingest.RunSucceeded,
		Cursor:       summary.Cursor,
		NextCursor:   summary.NextCursor,
		ItemsFetched: summary.ItemsFetched,
		RowsInserted: summary.RowsInserted,
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
	}
	if runErr != nil {
		rec.Status = ingest.RunFailed
		msg := runErr.Error()
		rec.ErrorMessage = &msg
		var stageErr *StageError
		if errors.As(runErr, &stageErr) {
			rec.FailedStage = string(stageErr.Stage)
		}
	}
	if err := r.runs.RecordRun(ctx, rec); err != nil {
		logger.Warn("record run failed", zap.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, logger *zap.Logger, summary ingest.RunSummary) {
	if r.cfg.Topic == "" || r.publisher == nil {
		return
	}
	id, err := r.publisher.Publish(ctx, r.cfg.Topic, summary)
	if err != nil {
		logger.Warn("publish run summary failed", zap.String("topic", r.cfg.Topic), zap.Error(err))
		return
	}
	logger.Info("run summary published", zap.String("topic", r.cfg.Topic), zap.String("message_id", id))
}
