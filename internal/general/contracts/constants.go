package contracts

// Backend endpoints, relative to api.base_url.
const (
	EndpointPassengerLogin = "api/v1/passengers/login"
	EndpointDriverLogin    = "api/v1/drivers/login"
	EndpointUsersLogin     = "api/v1/users/login"
	EndpointTaxiRequests   = "api/v1/taxiRequests/" // {id}
	EndpointTrips          = "api/v1/trips/"        // {id}
)

// Login error codes returned in ErrorBody.Code.
const (
	CodeAccountDoesNotExist = "account_does_not_exists"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeUnsupportedClient   = "unsupported_client"
)

// Push transport topology.
const (
	ExchangePushFanout     = "push_fanout"
	QueuePushNotifications = "push_notifications"
)
