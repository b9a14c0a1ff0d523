package service

import (
	"testing"

	"taxi-client/internal/domain/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoginRequest_RequiresEveryField(t *testing.T) {
	full := session.Credentials{Email: "a@b.c", Password: "pw", PushToken: "push"}

	tests := []struct {
		name  string
		creds session.Credentials
		field string
	}{
		{"missing email", session.Credentials{Password: "pw", PushToken: "push"}, "email"},
		{"blank email", session.Credentials{Email: "   ", Password: "pw", PushToken: "push"}, "email"},
		{"missing password", session.Credentials{Email: "a@b.c", PushToken: "push"}, "password"},
		{"blank password", session.Credentials{Email: "a@b.c", Password: " ", PushToken: "push"}, "password"},
		{"missing push token", session.Credentials{Email: "a@b.c", Password: "pw"}, "pushToken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoginRequest(KindRider, tt.creds)
			require.ErrorIs(t, err, ErrMissingField)

			var mf *MissingFieldError
			require.ErrorAs(t, err, &mf)
			assert.Equal(t, tt.field, mf.Field)
		})
	}

	req, err := NewLoginRequest(KindDriver, full)
	require.NoError(t, err)
	assert.Equal(t, KindDriver, req.Kind())
	assert.Equal(t, "push", req.Body().PushNotificationToken)
}

func TestNewLoginRequest_UnknownKind(t *testing.T) {
	_, err := NewLoginRequest("ADMIN", session.Credentials{Email: "a", Password: "b", PushToken: "c"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLoginRequest_Endpoint(t *testing.T) {
	creds := session.Credentials{Email: "a@b.c", Password: "pw", PushToken: "push"}
	tests := []struct {
		kind Kind
		want string
	}{
		{KindRider, "api/v1/passengers/login"},
		{KindDriver, "api/v1/drivers/login"},
		{KindUsers, "api/v1/users/login"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			req, err := NewLoginRequest(tt.kind, creds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Endpoint())
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" passenger ")
	require.NoError(t, err)
	assert.Equal(t, KindRider, k)

	k, err = ParseKind("users")
	require.NoError(t, err)
	assert.Equal(t, KindUsers, k)

	_, err = ParseKind("admin")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
