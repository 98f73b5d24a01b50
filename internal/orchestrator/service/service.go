// Package service coordinates a search across the search and history backends.
package service

import (
	"context"
	"time"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/metrics"
	"search-orchestrator/internal/common/observability"
	"search-orchestrator/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Searcher runs a query against the search backend.
type Searcher interface {
	Search(ctx context.Context, query models.SearchQuery) (*models.SearchBackendResponse, error)
}

// HistoryStore is the history backend as seen by the orchestrator.
type HistoryStore interface {
	RecordSearch(ctx context.Context, userID, searchText string, searchFields []string) (*models.HistoryEntry, error)
	SaveSearch(ctx context.Context, userID, searchID, searchName string) (*models.HistoryEntry, error)
	ListHistory(ctx context.Context, userID string, saved *bool) ([]models.HistoryEntry, error)
}

// Config holds orchestrator settings.
type Config struct {
	// HistoryTimeout bounds a history write that outlives its request.
	HistoryTimeout time.Duration
}

type Orchestrator struct {
	config  Config
	search  Searcher
	history HistoryStore
	probes  []Probe
	log     logger.Logger
	obs     *observability.Observability
}

func New(cfg Config, search Searcher, history HistoryStore, probes []Probe, log logger.Logger, obs *observability.Observability) *Orchestrator {
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = 5 * time.Second
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Orchestrator{
		config:  cfg,
		search:  search,
		history: history,
		probes:  probes,
		log:     log,
		obs:     obs,
	}
}

// historyOutcome is the result of the best-effort history step. A zero value
// means no attempt was made.
type historyOutcome struct {
	entry *models.HistoryEntry
	err   error
}

// ExecuteSearch runs the search and, for a known user, records it in history.
// Search failures fail the call; history failures are logged and dropped.
func (o *Orchestrator) ExecuteSearch(ctx context.Context, query models.SearchQuery) (*models.SearchResult, error) {
	ctx, span := o.obs.StartSpan(ctx, "orchestrator.execute_search",
		attribute.Bool("user.present", query.UserID != ""),
	)
	defer span.End()

	resp, err := o.runSearch(ctx, query)
	if err != nil {
		o.fail(span, "execute_search", err)
		return nil, err
	}

	var outcome historyOutcome
	if query.UserID != "" {
		outcome = o.recordHistory(ctx, query)
		if outcome.err != nil {
			code := errors.CodeOf(outcome.err)
			metrics.HistoryRecordFailures.WithLabelValues(string(code)).Inc()
			span.AddEvent("history record failed", trace.WithAttributes(
				attribute.String("error.code", string(code)),
				attribute.String("error.message", outcome.err.Error()),
			))
			o.log.Warn("failed to record search history", map[string]interface{}{
				"userId": query.UserID,
				"code":   code,
				"error":  outcome.err,
			})
		}
	}

	result := merge(resp, outcome)
	span.SetAttributes(
		attribute.Int("search.count", result.Count),
		attribute.Bool("history.recorded", result.HistoryID != nil),
	)
	metrics.OrchestratorOperations.WithLabelValues("execute_search", metrics.OutcomeSuccess, "").Inc()
	return result, nil
}

func (o *Orchestrator) runSearch(ctx context.Context, query models.SearchQuery) (*models.SearchBackendResponse, error) {
	ctx, span := o.obs.StartSpan(ctx, "search_service.search",
		attribute.String("search.text", query.Text),
	)
	defer span.End()

	resp, err := o.search.Search(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

// recordHistory writes the history entry on a context detached from the caller,
// bounded by HistoryTimeout. If the caller goes away first the write still
// completes but its result is discarded.
func (o *Orchestrator) recordHistory(ctx context.Context, query models.SearchQuery) historyOutcome {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.HistoryTimeout)

	done := make(chan historyOutcome, 1)
	go func() {
		defer cancel()
		spanCtx, span := o.obs.StartSpan(detached, "user_history.record_search",
			attribute.String("user.id", query.UserID),
		)
		defer span.End()

		entry, err := o.history.RecordSearch(spanCtx, query.UserID, query.HistoryText, query.HistoryFields)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		done <- historyOutcome{entry: entry, err: err}
	}()

	select {
	case outcome := <-done:
		if ctx.Err() == nil {
			return outcome
		}
	case <-ctx.Done():
	}

	o.log.Debug("request finished before history write, discarding result", map[string]interface{}{
		"userId": query.UserID,
	})
	return historyOutcome{}
}

func merge(resp *models.SearchBackendResponse, outcome historyOutcome) *models.SearchResult {
	status := resp.Status
	if status == "" {
		status = models.StatusSuccess
	}

	result := &models.SearchResult{
		Status:  status,
		Count:   len(resp.Records),
		Records: resp.Records,
	}
	if outcome.err == nil && outcome.entry != nil && outcome.entry.ID != "" {
		id := outcome.entry.ID
		result.HistoryID = &id
	}
	return result
}

// SaveSearch marks a history entry as saved. Errors propagate unchanged.
func (o *Orchestrator) SaveSearch(ctx context.Context, cmd models.SaveSearchCommand) (*models.HistoryEntry, error) {
	ctx, span := o.obs.StartSpan(ctx, "user_history.save_search",
		attribute.String("user.id", cmd.UserID),
		attribute.String("search.id", cmd.SearchID),
	)
	defer span.End()

	entry, err := o.history.SaveSearch(ctx, cmd.UserID, cmd.SearchID, cmd.SearchName)
	if err != nil {
		o.fail(span, "save_search", err)
		return nil, err
	}
	metrics.OrchestratorOperations.WithLabelValues("save_search", metrics.OutcomeSuccess, "").Inc()
	return entry, nil
}

// GetUserHistory lists a user's entries, optionally filtered by saved state.
// Errors propagate unchanged.
func (o *Orchestrator) GetUserHistory(ctx context.Context, userID string, saved *bool) ([]models.HistoryEntry, error) {
	ctx, span := o.obs.StartSpan(ctx, "user_history.list",
		attribute.String("user.id", userID),
	)
	defer span.End()

	entries, err := o.history.ListHistory(ctx, userID, saved)
	if err != nil {
		o.fail(span, "get_user_history", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("history.count", len(entries)))
	metrics.OrchestratorOperations.WithLabelValues("get_user_history", metrics.OutcomeSuccess, "").Inc()
	return entries, nil
}

func (o *Orchestrator) fail(span trace.Span, operation string, err error) {
	code := errors.CodeOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.OrchestratorOperations.WithLabelValues(operation, metrics.OutcomeError, string(code)).Inc()
	o.log.Error(operation+" failed", map[string]interface{}{
		"code":  code,
		"error": err,
	})
}
