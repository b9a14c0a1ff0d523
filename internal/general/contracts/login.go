package contracts

// LoginRequestBody is POSTed to every login endpoint.
type LoginRequestBody struct {
	Email                 string `json:"email"`
	Password              string `json:"password"`
	PushNotificationToken string `json:"pushNotificationToken"`
}

// LoginResponseBody is the 2xx body of a login endpoint.
type LoginResponseBody struct {
	Token      string `json:"token"`
	UserID     string `json:"userId,omitempty"`
	ClientType string `json:"clientType,omitempty"` // passenger | driver; the users endpoint always sets it
}

// ErrorBody carries a domain login error code.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ValidationProblem is the field-level validation failure body of the users endpoint.
type ValidationProblem struct {
	Type    string              `json:"type"`
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	TraceID string              `json:"traceId"`
	Errors  map[string][]string `json:"errors"`
}
