package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/alexisbeaulieu97/exportrun/internal/domain/export"
	"github.com/alexisbeaulieu97/exportrun/internal/ports"
	apperrors "github.com/alexisbeaulieu97/exportrun/pkg/errors"
)

// Provider writes the segment currently attached to the execution context.
// It is called once per segment and should poll ec.IsCanceled between
// records, returning early when it is set.
type Provider interface {
	Execute(ctx context.Context, ec *domain.ExecutionContext) error
}

// SegmentSource yields the segmenters of a run in order. ok is false once the
// data set is exhausted. Ownership of a returned segmenter passes to the caller.
type SegmentSource interface {
	Next(ctx context.Context) (seg domain.Segmenter, ok bool, err error)
}

// RunRequest describes a single export run.
type RunRequest struct {
	Name     string
	Options  domain.Options
	Source   SegmentSource
	Provider Provider
}

// RunSummary reports what a run produced.
type RunSummary struct {
	RunID                     string
	Name                      string
	Files                     []string
	SuccessfulExportedRecords int
	TeardownFailures          int
	Canceled                  bool
}

// RunUseCase drives one export run around an execution context.
type RunUseCase struct {
	logger ports.Logger
	events ports.EventPublisher
	newID  func() string
}

// NewRunUseCase constructs a RunUseCase with dependencies injected.
func NewRunUseCase(logger ports.Logger, events ports.EventPublisher) *RunUseCase {
	return &RunUseCase{
		logger: logger,
		events: events,
		newID:  uuid.NewString,
	}
}

// Run exports every segment of req.Source through req.Provider. Cancellation
// of ctx, or of req.Options.Cancellation when set, stops the run between
// segments; a canceled run returns a summary with Canceled set and no error.
// The execution context, and with it the last segmenter, is always closed
// before Run returns.
func (u *RunUseCase) Run(ctx context.Context, req RunRequest) (summary RunSummary, err error) {
	if req.Source == nil || req.Provider == nil {
		return RunSummary{}, apperrors.NewValidationError("run", "segment source and provider are required", nil)
	}

	runID := u.newID()
	if ports.GetCorrelationID(ctx) == "" {
		ctx = ports.WithCorrelationID(ctx, runID)
	}
	summary = RunSummary{RunID: runID, Name: req.Name}

	log := u.runLogger(runID)
	opts := req.Options
	if opts.Cancellation == nil {
		sig, stop := domain.SignalFromContext(ctx)
		defer stop()
		opts.Cancellation = sig
	}
	if opts.Logger == nil {
		opts.Logger = log
	}

	ec, err := domain.NewExecutionContext(opts)
	if err != nil {
		log.Error(ctx, "invalid run options", "error", err)
		u.publish(ctx, ports.EventRunFailed, map[string]interface{}{"run_id": runID, "name": req.Name, "error": err.Error()})
		return summary, err
	}

	log.Info(ctx, "export run started", "name", req.Name, "folder", ec.Folder())
	u.publish(ctx, ports.EventRunStarted, map[string]interface{}{
		"run_id": runID,
		"name":   req.Name,
		"folder": ec.Folder(),
	})

	defer func() {
		if closeErr := ec.Close(ctx); closeErr != nil {
			u.teardownFailed(ctx, &summary, closeErr)
		}
		summary.SuccessfulExportedRecords = ec.SuccessfulExportedRecords()
		u.finish(ctx, log, summary, err)
	}()

	for {
		if ec.IsCanceled() {
			summary.Canceled = true
			return summary, nil
		}

		seg, ok, nextErr := req.Source.Next(ctx)
		if nextErr != nil {
			if canceledBy(ctx, ec, nextErr) {
				summary.Canceled = true
				return summary, nil
			}
			return summary, fmt.Errorf("next segment: %w", nextErr)
		}
		if !ok {
			return summary, nil
		}

		if attachErr := ec.AttachSegmenter(ctx, seg); attachErr != nil {
			if !errors.Is(attachErr, domain.ErrTeardownFailed) {
				return summary, attachErr
			}
			u.teardownFailed(ctx, &summary, attachErr)
		}

		path, pathErr := ec.CurrentFilePath()
		if pathErr != nil {
			return summary, pathErr
		}
		index := seg.FileIndex()
		u.publish(ctx, ports.EventSegmentStarted, map[string]interface{}{
			"run_id":    runID,
			"segment":   index,
			"file_path": path,
		})

		if execErr := req.Provider.Execute(ctx, ec); execErr != nil {
			if canceledBy(ctx, ec, execErr) {
				summary.Canceled = true
				return summary, nil
			}
			return summary, apperrors.NewExportError(path, index, execErr)
		}

		summary.Files = append(summary.Files, path)
		u.publish(ctx, ports.EventSegmentCompleted, map[string]interface{}{
			"run_id":    runID,
			"segment":   index,
			"file_path": path,
			"exported":  ec.SuccessfulExportedRecords(),
		})
	}
}

func (u *RunUseCase) finish(ctx context.Context, log ports.Logger, summary RunSummary, err error) {
	payload := map[string]interface{}{
		"run_id":   summary.RunID,
		"name":     summary.Name,
		"files":    len(summary.Files),
		"exported": summary.SuccessfulExportedRecords,
	}
	switch {
	case err != nil:
		payload["error"] = err.Error()
		log.Error(ctx, "export run failed", "error", err, "exported", summary.SuccessfulExportedRecords)
		u.publish(ctx, ports.EventRunFailed, payload)
	case summary.Canceled:
		log.Warn(ctx, "export run canceled", "files", len(summary.Files), "exported", summary.SuccessfulExportedRecords)
		u.publish(ctx, ports.EventRunCanceled, payload)
	default:
		log.Info(ctx, "export run completed", "files", len(summary.Files), "exported", summary.SuccessfulExportedRecords)
		u.publish(ctx, ports.EventRunCompleted, payload)
	}
}

func (u *RunUseCase) teardownFailed(ctx context.Context, summary *RunSummary, err error) {
	summary.TeardownFailures++
	u.publish(ctx, ports.EventSegmentTeardownFailed, map[string]interface{}{
		"run_id": summary.RunID,
		"error":  err.Error(),
	})
}

func (u *RunUseCase) runLogger(runID string) ports.Logger {
	if u.logger == nil {
		return discard{}
	}
	return u.logger.With("run_id", runID)
}

func (u *RunUseCase) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	publishEvent(ctx, u.events, u.logger, eventType, payload)
}

// canceledBy reports whether err is the provider or source unwinding after a
// cancellation request.
func canceledBy(ctx context.Context, ec *domain.ExecutionContext, err error) bool {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return ec.IsCanceled() || ctx.Err() != nil
}

type discard struct{}

func (discard) Debug(context.Context, string, ...interface{}) {}
func (discard) Info(context.Context, string, ...interface{}) {}
func (discard) Warn(context.Context, string, ...interface{}) {}
func (discard) Error(context.Context, string, ...interface{}) {}
func (d discard) With(...interface{}) ports.Logger { return d }
