package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestNewIDTokenVerifierDisabledWithoutClientID(t *testing.T) {
	assert.Nil(t, NewIDTokenVerifier(""))
}

func TestIDTokenVerifierMapsPayload(t *testing.T) {
	v := NewIDTokenVerifier("client-1")
	var gotAudience string
	v.validate = func(_ context.Context, _, aud string) (*idtoken.Payload, error) {
		gotAudience = aud
		return &idtoken.Payload{
			Subject: "1234",
			Claims:  map[string]interface{}{"email": "ada@example.com", "name": "Ada", "email_verified": true},
		}, nil
	}

	id, err := v.Verify(context.Background(), "cred")
	require.NoError(t, err)
	assert.Equal(t, "client-1", gotAudience)
	assert.Equal(t, GoogleIdentity{Subject: "1234", Email: "ada@example.com", Name: "Ada", EmailVerified: true}, id)
}

func TestIDTokenVerifierRejects(t *testing.T) {
	v := NewIDTokenVerifier("client-1")
	v.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return nil, errors.New("audience mismatch")
	}
	_, err := v.Verify(context.Background(), "cred")
	assert.Error(t, err)

	_, err = identityFromPayload(&idtoken.Payload{Subject: "1", Claims: map[string]interface{}{}})
	assert.Error(t, err, "email is required")

	id, err := identityFromPayload(&idtoken.Payload{Subject: "1", Claims: map[string]interface{}{"email": "a@b.c", "email_verified": "true"}})
	require.NoError(t, err)
	assert.True(t, id.EmailVerified)
}
