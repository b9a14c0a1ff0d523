package ports

import (
	"context"
	"net/http"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/domain/trip"
)

// Transport sends one HTTP request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// ----- Session store -----

// SessionWriter stages writes inside SessionStore.WithinTx.
type SessionWriter interface {
	SaveToken(token string)
	SaveActorType(actor session.ActorType)
}

// SessionStore is the single holder of the current session.
type SessionStore interface {
	SaveToken(ctx context.Context, token string) error
	SaveActorType(ctx context.Context, actor session.ActorType) error
	LoginStatus() session.LoginStatus
	Token() string
	Current() session.Session
	Clear(ctx context.Context) error

	// ClearIfToken clears the session only if it still holds token and reports whether it did.
	ClearIfToken(ctx context.Context, token string) (bool, error)

	// WithinTx applies every write staged by fn as one unit, or none of them if fn fails.
	WithinTx(ctx context.Context, fn func(w SessionWriter) error) error
}

// ----- Tracking -----

// TaxiRequestSnapshot is the authoritative state fetched after a status change event.
type TaxiRequestSnapshot struct {
	Request   *taxirequest.TaxiRequest
	Trip      *trip.Trip // nil until the backend reports a trip
	Effective taxirequest.Status
	FetchedAt time.Time
}

// TaxiRequestListener receives every refreshed snapshot.
type TaxiRequestListener interface {
	OnTaxiRequestUpdate(ctx context.Context, snap TaxiRequestSnapshot)
}
