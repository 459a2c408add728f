package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ericfisherdev/livebadge/internal/adapter/driven/secret"
	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MetricStore = (*MetricRepo)(nil)

// ErrDuplicateID is returned when a record with the same ID already exists.
var ErrDuplicateID = errors.New("metric id already exists")

const uniqueViolation = "23505"

// MetricRepo is the PostgreSQL implementation of the MetricStore port.
type MetricRepo struct {
	pool *pgxpool.Pool
	box  *secret.Box
}

// NewMetricRepo creates a MetricRepo over pool. box may be nil.
func NewMetricRepo(pool *pgxpool.Pool, box *secret.Box) *MetricRepo {
	return &MetricRepo{pool: pool, box: box}
}

// Create inserts a new metric record.
func (r *MetricRepo) Create(ctx context.Context, rec model.MetricRecord) error {
	const query = `INSERT INTO metrics
		(id, endpoint, public_credential, label, color, kind, table_schema, table_name, protected, cached_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	credential, err := r.box.Seal(rec.PublicCredential)
	if err != nil {
		return fmt.Errorf("seal credential for metric %s: %w", rec.ID, err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var schema, table *string
	if rec.Table != nil {
		schema, table = &rec.Table.Schema, &rec.Table.Name
	}

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Endpoint, credential, rec.Label, rec.Color, string(rec.Kind),
		schema, table, rec.Protected, rec.CachedValue, createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("create metric %s: %w", rec.ID, ErrDuplicateID)
		}
		return fmt.Errorf("create metric %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a metric record by ID. Returns nil, nil if it does not exist.
func (r *MetricRepo) Get(ctx context.Context, id string) (*model.MetricRecord, error) {
	const query = `SELECT id, endpoint, public_credential, label, color, kind, table_schema, table_name,
		protected, cached_value, created_at FROM metrics WHERE id = $1`

	var (
		rec        model.MetricRecord
		credential string
		kind       string
		schema     *string
		table      *string
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Endpoint, &credential, &rec.Label, &rec.Color, &kind,
		&schema, &table, &rec.Protected, &rec.CachedValue, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metric %s: %w", id, err)
	}

	rec.PublicCredential, err = r.box.Open(credential)
	if err != nil {
		return nil, fmt.Errorf("open credential for metric %s: %w", id, err)
	}

	rec.Kind = model.MetricKind(kind)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if table != nil {
		ref := model.TableRef{Name: *table, Schema: model.DefaultSchema}
		if schema != nil {
			ref.Schema = *schema
		}
		rec.Table = &ref
	}

	return &rec, nil
}

// UpdateCachedValue overwrites the cached count. Returns ErrMetricNotFound if
// no record has the given ID.
func (r *MetricRepo) UpdateCachedValue(ctx context.Context, id string, value int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE metrics SET cached_value = $1 WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("update cached value for metric %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update cached value for metric %s: %w", id, driven.ErrMetricNotFound)
	}
	return nil
}

// Ping checks the pool.
func (r *MetricRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
