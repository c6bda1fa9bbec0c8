package service

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// IDTokenVerifier validates Google ID tokens against a client id.
type IDTokenVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewIDTokenVerifier returns nil when clientID is empty, which disables
// Google login.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	if clientID == "" {
		return nil
	}
	return &IDTokenVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, credential string) (GoogleIdentity, error) {
	p, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("validate id token: %w", err)
	}
	return identityFromPayload(p)
}

func identityFromPayload(p *idtoken.Payload) (GoogleIdentity, error) {
	if p == nil || p.Subject == "" {
		return GoogleIdentity{}, errors.New("id token has no subject")
	}
	id := GoogleIdentity{Subject: p.Subject}
	id.Email, _ = p.Claims["email"].(string)
	id.Name, _ = p.Claims["name"].(string)
	switch ev := p.Claims["email_verified"].(type) {
	case bool:
		id.EmailVerified = ev
	case string:
		id.EmailVerified = ev == "true"
	}
	if id.Email == "" {
		return GoogleIdentity{}, errors.New("id token has no email")
	}
	return id, nil
}
