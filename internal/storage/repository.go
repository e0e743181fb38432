package storage

import (
	"context"
)

type Repository struct {
	Store *Store
}

func NewRepository(store *Store) *Repository {
	return &Repository{Store: store}
}

// EnsureSchema creates the metrics and alerts tables if they do not exist.
// Called on startup so a fresh database works without running migrations.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.Store.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metrics (
			id bigserial PRIMARY KEY,
			ts_utc timestamptz NOT NULL,
			cpu_usage double precision NOT NULL,
			memory_usage double precision NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = r.Store.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id bigserial PRIMARY KEY,
			ts_utc timestamptz NOT NULL,
			alert_type text NOT NULL,
			observed_value double precision NOT NULL,
			threshold double precision NOT NULL,
			message text NOT NULL
		)`)
	return err
}

func (r *Repository) InsertSample(ctx context.Context, rec SampleRecord) error {
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO metrics (ts_utc, cpu_usage, memory_usage)
		VALUES ($1,$2,$3)`,
		rec.TSUTC, rec.CPU, rec.Memory,
	)
	return err
}

func (r *Repository) InsertAlert(ctx context.Context, alert AlertRecord) error {
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO alerts (ts_utc, alert_type, observed_value, threshold, message)
		VALUES ($1,$2,$3,$4,$5)`,
		alert.TSUTC, alert.Type, alert.Value, alert.Threshold, alert.Message,
	)
	return err
}

// RecentSamples returns the most recent limit samples in oldest-first order.
// Limit zero or negative returns an empty slice.
func (r *Repository) RecentSamples(ctx context.Context, limit int) ([]SampleRecord, error) {
	if limit <= 0 {
		return []SampleRecord{}, nil
	}
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT id, ts_utc, cpu_usage, memory_usage
		FROM metrics ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []SampleRecord{}
	for rows.Next() {
		var rec SampleRecord
		if err := rows.Scan(&rec.ID, &rec.TSUTC, &rec.CPU, &rec.Memory); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// rows are returned in DESC order, reverse to ASC
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// AllAlerts returns every stored alert, newest first.
func (r *Repository) AllAlerts(ctx context.Context) ([]AlertRecord, error) {
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT id, ts_utc, alert_type, observed_value, threshold, message
		FROM alerts ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []AlertRecord{}
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.TSUTC, &rec.Type, &rec.Value, &rec.Threshold, &rec.Message); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
