// Package service runs bulk item imports for a resident: it reads a source,
// prepares candidates against the resident's existing items, and commits the
// valid set through the item store.
//
// Every import attempt is independent. A preview performs the same
// preparation as an import but never writes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/logging"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/metrics"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/source"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/store"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/workpool"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrSheetsNotConfigured = errors.New("sheets source not configured")
	ErrMissingResident     = store.ErrMissingResident
)

// DefaultImportTimeout bounds the commit phase of one attempt.
const DefaultImportTimeout = 10 * time.Minute

// Config holds the service limits.
type Config struct {
	CommitConcurrency    int           // simultaneous store writes per attempt
	MaxConcurrentBatches int           // simultaneous import attempts
	MaxWaitTime          time.Duration // wait for a batch slot
	MaxFileBytes         int64         // 0 means no limit
	MaxImageBytes        int64         // 0 means source.MaxImageBytes
	ImportTimeout        time.Duration
	DemoMode             bool
	DemoCommitLatency    time.Duration
}

// SheetSource reads candidates from a hosted spreadsheet.
type SheetSource interface {
	Read(ctx context.Context, spreadsheetID string) ([]core.CandidateRecord, error)
}

// Deps are the collaborators of a Service. Store is required; Sheets and
// Extractor may be nil when those sources are not configured.
type Deps struct {
	Store     store.Store
	Extractor source.Extractor
	Sheets    SheetSource
	Metrics   *metrics.Metrics
}

// Service provides the import operations.
type Service struct {
	cfg       Config
	store     store.Store
	extractor source.Extractor
	sheets    SheetSource
	metrics   *metrics.Metrics
	pipeline  core.Pipeline
	limiter   *workpool.Limiter
	commit    func(residentID, userID string) core.CommitFunc
}

// New creates a Service.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = source.MaxImageBytes
	}

	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		extractor: deps.Extractor,
		sheets:    deps.Sheets,
		metrics:   deps.Metrics,
		pipeline: core.Pipeline{Executor: core.Executor{
			Limit:    cfg.CommitConcurrency,
			Observer: observer(deps.Metrics),
		}},
		limiter: workpool.NewLimiter(cfg.MaxConcurrentBatches, cfg.MaxWaitTime),
	}

	if cfg.DemoMode {
		demo := core.DemoCommit(cfg.DemoCommitLatency)
		s.commit = func(string, string) core.CommitFunc { return demo }
	} else {
		s.commit = s.storeCommit
	}
	return s, nil
}

// observer avoids storing a typed nil in the interface.
func observer(m *metrics.Metrics) core.CommitObserver {
	if m == nil {
		return nil
	}
	return m
}

func (s *Service) storeCommit(residentID, userID string) core.CommitFunc {
	return func(ctx context.Context, c core.CandidateRecord) (core.CommitReceipt, error) {
		id, err := s.store.Create(ctx, store.NewItem{
			ResidentID: residentID,
			UserID:     userID,
			Fields:     c.Parsed,
		})
		if err != nil {
			return core.CommitReceipt{}, err
		}
		return core.CommitReceipt{CommittedID: id}, nil
	}
}

// DemoMode reports whether commits are simulated.
func (s *Service) DemoMode() bool {
	return s.cfg.DemoMode
}

// SheetsEnabled reports whether a hosted spreadsheet source is configured.
func (s *Service) SheetsEnabled() bool {
	return s.sheets != nil
}

// ImportStatus returns the batch limiter state.
func (s *Service) ImportStatus() workpool.LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until every running import attempt has finished
// or ctx is done. Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks the item store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// attempt carries the per-call state shared by previews and imports.
type attempt struct {
	id         string
	residentID string
	source     core.SourceKind
	log        *slog.Logger
	started    time.Time
}

func (s *Service) begin(ctx context.Context, residentID string, src core.SourceKind, op string) (*attempt, error) {
	residentID = strings.TrimSpace(residentID)
	if residentID == "" {
		return nil, ErrMissingResident
	}
	a := &attempt{
		id:         uuid.NewString(),
		residentID: residentID,
		source:     src,
		started:    time.Now(),
	}
	attrs := append([]any{
		"import_id", a.id,
		"op", op,
		"source", src,
		"resident_id", residentID,
	}, core.OriginAttrs(ctx)...)
	a.log = logging.WithFields(ctx, attrs...)
	return a, nil
}

// sourceError records a fatal source error and returns it unchanged.
func (s *Service) sourceError(a *attempt, err error) error {
	code := core.MapError(err).Code
	s.metrics.SourceFailure(a.source, code)
	a.log.Warn("source rejected", "code", code, "error", err)
	return err
}

// prepare drops excluded candidates, reads the snapshot once and runs the
// pre-commit stages.
func (s *Service) prepare(ctx context.Context, a *attempt, cands []core.CandidateRecord, exclude []int) (core.Prepared, error) {
	cands = core.Exclude(cands, exclude)

	snapshot, err := s.store.Snapshot(ctx, a.residentID)
	if err != nil {
		return core.Prepared{}, fmt.Errorf("load existing items: %w", err)
	}

	prepared := s.pipeline.Prepare(cands, snapshot)
	sum := prepared.Summary()
	s.metrics.ObservePrepared(a.source, sum)
	a.log.Info("candidates prepared",
		"total", sum.Total,
		"valid", sum.Valid,
		"duplicates", sum.Duplicates,
		"invalid", sum.Invalid,
		"warnings", sum.Warnings,
		"existing", len(snapshot),
		"sibling_groups", len(prepared.Siblings),
	)
	return prepared, nil
}

// run commits a prepared attempt. The commit phase is detached from the
// caller's cancellation: once it starts every valid item is attempted.
func (s *Service) run(ctx context.Context, a *attempt, userID string, prepared core.Prepared) core.ImportResult {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ImportTimeout)
	defer cancel()

	s.metrics.ImportStarted()
	result := s.pipeline.Run(commitCtx, prepared, s.commit(a.residentID, userID))
	s.metrics.ImportFinished()

	result.SortByIndex()
	elapsed := time.Since(a.started)
	s.metrics.ObserveResult(a.source, result, elapsed)

	level := slog.LevelInfo
	if result.Failed > 0 {
		level = slog.LevelWarn
	}
	a.log.Log(ctx, level, "import finished",
		"total", result.Total,
		"success", result.Success,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"demo", s.cfg.DemoMode,
		"duration", elapsed,
	)
	return result
}
