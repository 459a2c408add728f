package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
)

// ErrMetricNotFound indicates the requested metric record does not exist.
var ErrMetricNotFound = errors.New("metric not found")

// MetricStore defines the driven port for metric record persistence.
// Get returns (nil, nil) when the record does not exist.
// UpdateCachedValue returns ErrMetricNotFound if the record does not exist.
// Concurrent UpdateCachedValue calls for the same record are last-write-wins.
type MetricStore interface {
	Create(ctx context.Context, rec model.MetricRecord) error
	Get(ctx context.Context, id string) (*model.MetricRecord, error)
	UpdateCachedValue(ctx context.Context, id string, value int64) error
	Ping(ctx context.Context) error
}
