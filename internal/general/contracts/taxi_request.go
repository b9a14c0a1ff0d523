package contracts

import (
	"fmt"
	"time"

	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/domain/trip"
)

// TaxiRequestDTO is the body of GET api/v1/taxiRequests/{id}.
type TaxiRequestDTO struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	ExpirationDate time.Time `json:"expirationDate"`
	RiderID        string    `json:"riderId"`
	DriverID       *string   `json:"driverId,omitempty"`
	TripID         *string   `json:"tripId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TripDTO is the body of GET api/v1/trips/{id}.
type TripDTO struct {
	ID            string     `json:"id"`
	TaxiRequestID string     `json:"taxiRequestId"`
	Status        string     `json:"status"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	FareAmount    float64    `json:"fareAmount"`
	Rating        *int       `json:"rating,omitempty"`
	RiderID       string     `json:"riderId"`
	DriverID      string     `json:"driverId"`
}

var taxiRequestWire = map[string]taxirequest.Status{
	"waitingAcceptance": taxirequest.StatusWaitingAcceptance,
	"accepted":          taxirequest.StatusAccepted,
	"driverArrived":     taxirequest.StatusDriverArrived,
	"cancelled":         taxirequest.StatusCancelled,
	"finished":          taxirequest.StatusFinished,
}

var tripWire = map[string]trip.Status{
	"started":  trip.StatusStarted,
	"finished": trip.StatusFinished,
}

// TaxiRequestStatusFromWire maps the camelCase wire value to the domain status.
func TaxiRequestStatusFromWire(s string) (taxirequest.Status, error) {
	if st, ok := taxiRequestWire[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", taxirequest.ErrInvalidStatus, s)
}

// TaxiRequestStatusToWire is the inverse of TaxiRequestStatusFromWire.
func TaxiRequestStatusToWire(s taxirequest.Status) string {
	for wire, st := range taxiRequestWire {
		if st == s {
			return wire
		}
	}
	return ""
}

// TripStatusFromWire maps the wire value to the domain status.
func TripStatusFromWire(s string) (trip.Status, error) {
	if st, ok := tripWire[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", trip.ErrInvalidStatus, s)
}

// TripStatusToWire is the inverse of TripStatusFromWire.
func TripStatusToWire(s trip.Status) string {
	for wire, st := range tripWire {
		if st == s {
			return wire
		}
	}
	return ""
}

// ToDomain converts the DTO to a domain value.
func (dto TaxiRequestDTO) ToDomain() (*taxirequest.TaxiRequest, error) {
	if dto.ID == "" {
		return nil, taxirequest.ErrIDRequired
	}
	status, err := TaxiRequestStatusFromWire(dto.Status)
	if err != nil {
		return nil, err
	}
	return &taxirequest.TaxiRequest{
		ID:             dto.ID,
		RiderID:        dto.RiderID,
		DriverID:       dto.DriverID,
		TripID:         dto.TripID,
		Status:         status,
		ExpirationDate: dto.ExpirationDate.UTC(),
		CreatedAt:      dto.CreatedAt.UTC(),
		UpdatedAt:      dto.UpdatedAt.UTC(),
	}, nil
}

// NewTaxiRequestDTO converts a domain value to its wire form.
func NewTaxiRequestDTO(tr *taxirequest.TaxiRequest) TaxiRequestDTO {
	return TaxiRequestDTO{
		ID:             tr.ID,
		Status:         TaxiRequestStatusToWire(tr.Status),
		ExpirationDate: tr.ExpirationDate,
		RiderID:        tr.RiderID,
		DriverID:       tr.DriverID,
		TripID:         tr.TripID,
		CreatedAt:      tr.CreatedAt,
		UpdatedAt:      tr.UpdatedAt,
	}
}

// ToDomain converts the DTO to a validated domain value.
func (dto TripDTO) ToDomain() (*trip.Trip, error) {
	status, err := TripStatusFromWire(dto.Status)
	if err != nil {
		return nil, err
	}
	t := &trip.Trip{
		ID:            dto.ID,
		TaxiRequestID: dto.TaxiRequestID,
		RiderID:       dto.RiderID,
		DriverID:      dto.DriverID,
		Status:        status,
		StartDate:     dto.StartDate.UTC(),
		EndDate:       dto.EndDate,
		FareAmount:    dto.FareAmount,
		Rating:        dto.Rating,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewTripDTO converts a domain value to its wire form.
func NewTripDTO(t *trip.Trip) TripDTO {
	return TripDTO{
		ID:            t.ID,
		TaxiRequestID: t.TaxiRequestID,
		Status:        TripStatusToWire(t.Status),
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		FareAmount:    t.FareAmount,
		Rating:        t.Rating,
		RiderID:       t.RiderID,
		DriverID:      t.DriverID,
	}
}
