package backend

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// TokenResponse represents the response from the backend's OAuth2 token
// endpoint. The backend serves it either flat or wrapped in a "message"
// envelope depending on which server version answers; decodeTokenResponse
// tolerates both shapes.
type TokenResponse struct {
	// AccessToken is the bearer credential for authenticated backend calls.
	AccessToken *string `json:"access_token,omitempty"`

	// IdToken is the OpenID Connect ID token, present when the "openid"
	// scope was requested. The gateway only peeks at its claims for display
	// hints; identity is taken from the profile endpoint.
	IdToken *string `json:"id_token,omitempty"`

	// TokenType is "Bearer" in practice.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds. The backend has
	// been observed omitting it; callers apply a one hour default.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is the opaque credential exchanged for a new access token
	// without re-authentication.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the space-separated list of granted scopes.
	Scope string `json:"scope,omitempty"`
}

type tokenEnvelope struct {
	TokenResponse
	Message *TokenResponse `json:"message,omitempty"`
}

// decodeTokenResponse parses a token-endpoint body, unwrapping the nested
// "message" shape when the top level carries no access token.
func decodeTokenResponse(body []byte) (*TokenResponse, error) {
	var envelope tokenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, "[decodeTokenResponse] unmarshal")
	}
	if envelope.AccessToken == nil && envelope.Message != nil {
		return envelope.Message, nil
	}
	return &envelope.TokenResponse, nil
}

// errorMessage extracts a human-readable failure message from a backend
// response body, checking the fields the backend populates in turn.
func errorMessage(body []byte, fallback string) string {
	var shape struct {
		Message          any    `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return fallback
	}
	if msg, ok := shape.Message.(string); ok && msg != "" {
		return msg
	}
	if shape.ErrorDescription != "" {
		return shape.ErrorDescription
	}
	if shape.Error != "" {
		return shape.Error
	}
	return fallback
}
