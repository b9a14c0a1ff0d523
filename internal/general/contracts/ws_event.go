package contracts

import "time"

// WSAuthMessage is the first frame a websocket client must send:
// { "type":"auth", "token":"Bearer <token>" }
type WSAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// WSTaxiRequestUpdate is pushed to websocket clients after every refresh.
type WSTaxiRequestUpdate struct {
	Type            string         `json:"type"` // "taxi_request_update"
	TaxiRequest     TaxiRequestDTO `json:"taxi_request"`
	EffectiveStatus string         `json:"effective_status"`
	Expired         bool           `json:"expired"`
	Trip            *TripDTO       `json:"trip,omitempty"`
	FetchedAt       time.Time      `json:"fetched_at"`
	Envelope
}

// WSControl is used for auth acknowledgements and errors.
type WSControl struct {
	Type    string `json:"type"` // "auth_ok" | "auth_error"
	Message string `json:"message,omitempty"`
}
