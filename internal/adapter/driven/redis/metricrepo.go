package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/livebadge/internal/adapter/driven/secret"
	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MetricStore = (*MetricRepo)(nil)

// ErrDuplicateID is returned when a record with the same ID already exists.
var ErrDuplicateID = errors.New("metric id already exists")

const (
	fieldEndpoint    = "endpoint"
	fieldCredential  = "public_credential"
	fieldLabel       = "label"
	fieldColor       = "color"
	fieldKind        = "kind"
	fieldSchema      = "table_schema"
	fieldTable       = "table_name"
	fieldProtected   = "protected"
	fieldCachedValue = "cached_value"
	fieldCreatedAt   = "created_at"
)

// updateCachedScript writes the cached value only if the hash exists, so a
// refresh never resurrects a partial record.
var updateCachedScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// createScript writes every field of a new record in one step, failing when
// the hash already exists.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`)

// MetricRepo stores each record as a hash under "metric:{id}".
type MetricRepo struct {
	rdb *redis.Client
	box *secret.Box
}

// NewMetricRepo creates a MetricRepo over rdb. box may be nil.
func NewMetricRepo(rdb *redis.Client, box *secret.Box) *MetricRepo {
	return &MetricRepo{rdb: rdb, box: box}
}

func metricKey(id string) string {
	return fmt.Sprintf("metric:%s", id)
}

// Create stores a new record. The existence check and the write run as a
// single script, so readers never observe a partial hash.
func (r *MetricRepo) Create(ctx context.Context, rec model.MetricRecord) error {
	credential, err := r.box.Seal(rec.PublicCredential)
	if err != nil {
		return fmt.Errorf("seal credential for metric %s: %w", rec.ID, err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	args := []any{
		fieldEndpoint, rec.Endpoint,
		fieldCredential, credential,
		fieldLabel, rec.Label,
		fieldColor, rec.Color,
		fieldKind, string(rec.Kind),
		fieldProtected, strconv.FormatBool(rec.Protected),
		fieldCreatedAt, createdAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.Table != nil {
		args = append(args, fieldSchema, rec.Table.Schema, fieldTable, rec.Table.Name)
	}
	if rec.CachedValue != nil {
		args = append(args, fieldCachedValue, strconv.FormatInt(*rec.CachedValue, 10))
	}

	created, err := createScript.Run(ctx, r.rdb, []string{metricKey(rec.ID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("create metric %s: %w", rec.ID, err)
	}
	if created == 0 {
		return fmt.Errorf("create metric %s: %w", rec.ID, ErrDuplicateID)
	}
	return nil
}

// Get retrieves a record. Returns nil, nil if it does not exist.
func (r *MetricRepo) Get(ctx context.Context, id string) (*model.MetricRecord, error) {
	values, err := r.rdb.HGetAll(ctx, metricKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get metric %s: %w", id, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	rec := model.MetricRecord{
		ID:       id,
		Endpoint: values[fieldEndpoint],
		Label:    values[fieldLabel],
		Color:    values[fieldColor],
		Kind:     model.MetricKind(values[fieldKind]),
	}

	rec.PublicCredential, err = r.box.Open(values[fieldCredential])
	if err != nil {
		return nil, fmt.Errorf("open credential for metric %s: %w", id, err)
	}

	if name, ok := values[fieldTable]; ok {
		rec.Table = &model.TableRef{Schema: values[fieldSchema], Name: name}
	}

	rec.Protected, err = strconv.ParseBool(values[fieldProtected])
	if err != nil {
		return nil, fmt.Errorf("parse protected flag for metric %s: %w", id, err)
	}

	if raw, ok := values[fieldCachedValue]; ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse cached value for metric %s: %w", id, err)
		}
		rec.CachedValue = &v
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at for metric %s: %w", id, err)
	}

	return &rec, nil
}

// UpdateCachedValue overwrites the cached count. Returns ErrMetricNotFound if
// no record has the given ID.
func (r *MetricRepo) UpdateCachedValue(ctx context.Context, id string, value int64) error {
	updated, err := updateCachedScript.Run(ctx, r.rdb,
		[]string{metricKey(id)},
		fieldCachedValue, strconv.FormatInt(value, 10),
	).Int()
	if err != nil {
		return fmt.Errorf("update cached value for metric %s: %w", id, err)
	}
	if updated == 0 {
		return fmt.Errorf("update cached value for metric %s: %w", id, driven.ErrMetricNotFound)
	}
	return nil
}

// Ping checks the connection.
func (r *MetricRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
