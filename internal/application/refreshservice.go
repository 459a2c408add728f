package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// RefreshService re-probes a metric under a privileged credential and
// persists the result. The credential is used for this call only.
type RefreshService struct {
	store  driven.MetricStore
	client driven.ProjectClient
}

// NewRefreshService creates a new RefreshService with the required dependencies.
func NewRefreshService(store driven.MetricStore, client driven.ProjectClient) *RefreshService {
	return &RefreshService{
		store:  store,
		client: client,
	}
}

// Refresh never fails: a rejected credential or failed probe renders as
// Unavailable with reason auth failed, and the cached value is left as is.
// The fresh value is persisted only for protected and user_count records; a
// public record is rendered live without touching the store.
func (s *RefreshService) Refresh(ctx context.Context, id, credential string) model.Resolution {
	rec, err := loadRecord(ctx, s.store, id)
	if err != nil {
		return unavailableForLoad(id, err)
	}

	value, err := s.count(ctx, rec, credential)
	if err != nil {
		slog.Warn("refresh failed", "id", rec.ID, "kind", rec.Kind, "error", err)
		return model.Unavailable(rec.Label, model.ReasonAuthFailed)
	}

	if rec.Protected || rec.Kind == model.MetricKindUserCount {
		if err := s.store.UpdateCachedValue(ctx, rec.ID, value); err != nil {
			slog.Error("persist refreshed value failed", "id", rec.ID, "error", err)
		} else {
			slog.Info("metric refreshed", "id", rec.ID, "value", value)
		}
	}

	return model.Resolution{
		State: model.StateLive,
		Label: rec.Label,
		Color: rec.Color,
		Value: value,
	}
}

func (s *RefreshService) count(ctx context.Context, rec *model.MetricRecord, credential string) (int64, error) {
	cred := model.ClassifyCredential(credential)
	if cred.Key == "" {
		return 0, fmt.Errorf("%w: credential is required", ErrAuthFailed)
	}
	if cred.Tier == model.TierPublic {
		return 0, fmt.Errorf("%w: credential is not privileged", ErrAuthFailed)
	}

	if rec.Kind == model.MetricKindUserCount {
		n, err := s.client.CountUsers(ctx, rec.Endpoint, cred.Key)
		if err != nil {
			return 0, privilegedError(err)
		}
		return n, nil
	}

	if rec.Table == nil {
		return 0, fmt.Errorf("%w: metric has no table reference", ErrProbeFailed)
	}

	result := s.client.ProbeCount(ctx, rec.Endpoint, *rec.Table, cred.Key)
	if !result.OK() {
		return 0, privilegedProbeError(result)
	}
	return result.Total, nil
}

// privilegedError maps a privileged-tier adapter error onto the taxonomy.
func privilegedError(err error) error {
	if errors.Is(err, driven.ErrAccessDenied) {
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	return fmt.Errorf("%w: %w", ErrProbeFailed, err)
}

func privilegedProbeError(result model.ProbeResult) error {
	if result.Blocked() {
		return fmt.Errorf("%w: status %d", ErrAuthFailed, result.Status)
	}
	if result.Err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, result.Err)
	}
	return fmt.Errorf("%w: status %d", ErrProbeFailed, result.Status)
}
