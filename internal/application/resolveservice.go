package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// ResolveService decides what a badge shows at serve time. The decision is
// recomputed on every call; only the record's cached value persists.
type ResolveService struct {
	store  driven.MetricStore
	client driven.ProjectClient
}

// NewResolveService creates a new ResolveService with the required dependencies.
func NewResolveService(store driven.MetricStore, client driven.ProjectClient) *ResolveService {
	return &ResolveService{
		store:  store,
		client: client,
	}
}

// Resolve never fails: every error path ends in an Unavailable resolution.
func (s *ResolveService) Resolve(ctx context.Context, id string) model.Resolution {
	rec, err := loadRecord(ctx, s.store, id)
	if err != nil {
		return unavailableForLoad(id, err)
	}

	switch {
	case rec.Kind == model.MetricKindUserCount, rec.Protected:
		return fromCache(rec, model.ReasonRefreshRequired)
	case rec.Table == nil:
		slog.Warn("table metric has no table reference", "id", rec.ID)
		return fromCache(rec, model.ReasonOffline)
	}

	result := s.client.ProbeCount(ctx, rec.Endpoint, *rec.Table, rec.PublicCredential)
	if result.OK() {
		return model.Resolution{
			State: model.StateLive,
			Label: rec.Label,
			Color: rec.Color,
			Value: result.Total,
		}
	}

	slog.Warn("live probe failed",
		"id", rec.ID,
		"table", rec.Table.FullName(),
		"status", result.Status,
		"error", result.Err,
	)
	return fromCache(rec, model.ReasonOffline)
}

// loadRecord reads a record, mapping a missing one to ErrRecordNotFound.
func loadRecord(ctx context.Context, store driven.MetricStore, id string) (*model.MetricRecord, error) {
	rec, err := store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load metric %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("load metric %s: %w", id, ErrRecordNotFound)
	}
	return rec, nil
}

func unavailableForLoad(id string, err error) model.Resolution {
	if errors.Is(err, ErrRecordNotFound) {
		return model.Unavailable(model.PlaceholderLabel, model.ReasonNotFound)
	}
	slog.Error("metric store read failed", "id", id, "error", err)
	return model.Unavailable(model.PlaceholderLabel, model.ReasonOffline)
}

// fromCache returns the cached value, or Unavailable with reason when none exists.
func fromCache(rec *model.MetricRecord, reason model.UnavailableReason) model.Resolution {
	if !rec.HasCachedValue() {
		return model.Unavailable(rec.Label, reason)
	}
	return model.Resolution{
		State: model.StateCached,
		Label: rec.Label,
		Color: rec.Color,
		Value: *rec.CachedValue,
	}
}
