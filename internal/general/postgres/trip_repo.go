package postgres

import (
	"context"
	"errors"
	"fmt"

	"taxi-client/internal/domain/trip"
	"taxi-client/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TripRepo caches the last fetched snapshot of each trip.
type TripRepo struct{}

func NewTripRepo() ports.TripRepository {
	return &TripRepo{}
}

func (repo *TripRepo) Upsert(ctx context.Context, t *trip.Trip) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var rating *int16
	if t.Rating != nil {
		r := int16(*t.Rating)
		rating = &r
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trip_snapshot
			(id, taxi_request_id, rider_id, driver_id, status, start_date, end_date, fare_amount, rating, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			taxi_request_id = EXCLUDED.taxi_request_id,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			fare_amount = EXCLUDED.fare_amount,
			rating = EXCLUDED.rating,
			fetched_at = now()
	`,
		t.ID,
		t.TaxiRequestID,
		t.RiderID,
		t.DriverID,
		t.Status.String(),
		t.StartDate,
		t.EndDate,
		t.FareAmount,
		rating,
	)
	if err != nil {
		return fmt.Errorf("upsert trip %s: %w", t.ID, err)
	}
	return nil
}

func (repo *TripRepo) GetByID(ctx context.Context, id string) (*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out    trip.Trip
		status string
		rating *int16
	)
	err = tx.QueryRow(ctx, `
		SELECT id, taxi_request_id, rider_id, driver_id, status, start_date, end_date, fare_amount, rating
		FROM trip_snapshot
		WHERE id = $1
	`, id).Scan(&out.ID, &out.TaxiRequestID, &out.RiderID, &out.DriverID, &status,
		&out.StartDate, &out.EndDate, &out.FareAmount, &rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if out.Status, err = trip.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("trip %s: %w", id, err)
	}
	if rating != nil {
		r := int(*rating)
		out.Rating = &r
	}
	return &out, nil
}
