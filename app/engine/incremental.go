package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/detector"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

type PassResult struct {
	Skipped   bool              `json:"skipped"`
	Generated []string          `json:"generated"`
	Deleted   []string          `json:"deleted"`
	Failed    []string          `json:"failed"`
	Report    *detector.Summary `json:"report,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// WorkDone reports whether the pass changed any document.
func (r *PassResult) WorkDone() bool {
	return len(r.Generated) > 0 || len(r.Deleted) > 0
}

// RunIncrementalPass regenerates stale and missing documents and removes
// orphans. It is skipped while a full rebuild is in progress. Nothing is
// touched when detection fails. last check is stamped after every completed
// pass, last update only when a document changed.
func (e *Engine) RunIncrementalPass(ctx context.Context) (*PassResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.work.Lock()
	defer e.work.Unlock()

	start := time.Now()

	st, err := e.state.Load(ctx)
	if err != nil {
		return nil, err
	}
	if st.InProgress {
		slog.Info("Incremental pass skipped, full generation in progress")
		return &PassResult{Skipped: true}, nil
	}

	report, err := e.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to detect sitemap changes: %w", err)
	}

	summary := report.Summary()
	result := &PassResult{Report: &summary}

	regenerate := append(report.AllDatesToGenerate(), report.EntityKeys...)
	for _, key := range regenerate {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := e.Regenerate(ctx, key)
		if err != nil {
			slog.Error("Incremental regeneration failed", "key", key.String(), "error", err)
			result.Failed = append(result.Failed, key.String())
			continue
		}
		switch outcome {
		case OutcomeWritten:
			result.Generated = append(result.Generated, key.String())
		case OutcomeDeleted:
			result.Deleted = append(result.Deleted, key.String())
		}
	}

	orphans := append(append([]sitemap.Key{}, report.OrphanedDates...), report.OrphanedEntities...)
	for _, key := range orphans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		deleted, err := e.documents.Delete(ctx, key.String())
		if err != nil {
			slog.Error("Orphaned sitemap deletion failed", "key", key.String(), "error", err)
			result.Failed = append(result.Failed, key.String())
			continue
		}
		if deleted {
			slog.Info("Orphaned sitemap document deleted", "key", key.String())
			result.Deleted = append(result.Deleted, key.String())
		}
	}

	now := e.now()
	if err := e.state.SetTime(ctx, OptionLastCheck, now); err != nil {
		return nil, err
	}
	if result.WorkDone() {
		if err := e.state.SetTime(ctx, OptionLastUpdate, now); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)

	slog.Info("Incremental pass completed",
		"generated", len(result.Generated),
		"deleted", len(result.Deleted),
		"failed", len(result.Failed),
		"duration", result.Duration)

	return result, nil
}

// Detect runs the detector without acting on its report.
func (e *Engine) Detect(ctx context.Context) (*detector.Report, error) {
	return e.detector.Detect(ctx)
}
