package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/livebadge/internal/adapter/driven/secret"
	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MetricStore = (*MetricRepo)(nil)

// ErrDuplicateID is returned when a record with the same ID already exists.
var ErrDuplicateID = errors.New("metric id already exists")

// MetricRepo is the SQLite implementation of the MetricStore port interface.
// The public credential is sealed by box before write and opened after read.
type MetricRepo struct {
	db  *DB
	box *secret.Box
}

// NewMetricRepo creates a new MetricRepo backed by the given DB. box may be nil
// to store credentials as plaintext.
func NewMetricRepo(db *DB, box *secret.Box) *MetricRepo {
	return &MetricRepo{db: db, box: box}
}

// Create inserts a new metric record.
func (r *MetricRepo) Create(ctx context.Context, rec model.MetricRecord) error {
	const query = `INSERT INTO metrics
		(id, endpoint, public_credential, label, color, kind, table_schema, table_name, protected, cached_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	credential, err := r.box.Seal(rec.PublicCredential)
	if err != nil {
		return fmt.Errorf("seal credential for metric %s: %w", rec.ID, err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var schema, table sql.NullString
	if rec.Table != nil {
		schema = sql.NullString{String: rec.Table.Schema, Valid: true}
		table = sql.NullString{String: rec.Table.Name, Valid: true}
	}

	var cached sql.NullInt64
	if rec.CachedValue != nil {
		cached = sql.NullInt64{Int64: *rec.CachedValue, Valid: true}
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		rec.ID,
		rec.Endpoint,
		credential,
		rec.Label,
		rec.Color,
		string(rec.Kind),
		schema,
		table,
		rec.Protected,
		cached,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("create metric %s: %w", rec.ID, ErrDuplicateID)
		}
		return fmt.Errorf("create metric %s: %w", rec.ID, err)
	}

	return nil
}

// Get retrieves a metric record by ID. Returns nil, nil if the record does not exist.
func (r *MetricRepo) Get(ctx context.Context, id string) (*model.MetricRecord, error) {
	const query = `SELECT id, endpoint, public_credential, label, color, kind, table_schema, table_name,
		protected, cached_value, created_at FROM metrics WHERE id = ?`

	var (
		rec        model.MetricRecord
		credential string
		kind       string
		schema     sql.NullString
		table      sql.NullString
		cached     sql.NullInt64
		createdAt  string
	)

	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Endpoint,
		&credential,
		&rec.Label,
		&rec.Color,
		&kind,
		&schema,
		&table,
		&rec.Protected,
		&cached,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
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
	if table.Valid {
		rec.Table = &model.TableRef{Schema: schema.String, Name: table.String}
	}
	if cached.Valid {
		v := cached.Int64
		rec.CachedValue = &v
	}

	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for metric %s: %w", id, err)
	}

	return &rec, nil
}

// UpdateCachedValue overwrites the cached count. Returns ErrMetricNotFound if
// no record has the given ID.
func (r *MetricRepo) UpdateCachedValue(ctx context.Context, id string, value int64) error {
	const query = `UPDATE metrics SET cached_value = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update cached value for metric %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update cached value for metric %s: %w", id, driven.ErrMetricNotFound)
	}

	return nil
}

// Ping checks that the reader connection is usable.
func (r *MetricRepo) Ping(ctx context.Context) error {
	return r.db.Reader.PingContext(ctx)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
