package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TaxiRequestRepo caches the last fetched snapshot of each taxi request.
type TaxiRequestRepo struct{}

func NewTaxiRequestRepo() ports.TaxiRequestRepository {
	return &TaxiRequestRepo{}
}

func (repo *TaxiRequestRepo) Upsert(ctx context.Context, tr *taxirequest.TaxiRequest) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO taxi_request_snapshot (id, rider_id, driver_id, trip_id, status, expiration_date, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			rider_id = EXCLUDED.rider_id,
			driver_id = EXCLUDED.driver_id,
			trip_id = EXCLUDED.trip_id,
			status = EXCLUDED.status,
			expiration_date = EXCLUDED.expiration_date,
			fetched_at = now()
	`,
		tr.ID,
		tr.RiderID,
		tr.DriverID,
		tr.TripID,
		tr.Status.String(),
		tr.ExpirationDate,
	)
	if err != nil {
		return fmt.Errorf("upsert taxi request %s: %w", tr.ID, err)
	}
	return nil
}

func (repo *TaxiRequestRepo) GetByID(ctx context.Context, id string) (*taxirequest.TaxiRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out       taxirequest.TaxiRequest
		status    string
		fetchedAt time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT id, rider_id, driver_id, trip_id, status, expiration_date, fetched_at
		FROM taxi_request_snapshot
		WHERE id = $1
	`, id).Scan(&out.ID, &out.RiderID, &out.DriverID, &out.TripID, &status, &out.ExpirationDate, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if out.Status, err = taxirequest.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("taxi request %s: %w", id, err)
	}
	out.ExpirationDate = out.ExpirationDate.UTC()
	out.UpdatedAt = fetchedAt.UTC()
	return &out, nil
}
