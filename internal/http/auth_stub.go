package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/LarinhaPrates/canteen-orders/internal/identity"
)

// StubVerifier simulates the auth provider (replace with real JWT validation).
// The token is a base64 JSON document {"sub": "...", "metadata": {...}} so
// tests and local clients can exercise the legacy-metadata resolution path.
type StubVerifier struct{}

type stubClaims struct {
	Sub      string         `json:"sub"`
	Metadata map[string]any `json:"metadata"`
}

func (StubVerifier) Verify(_ context.Context, token string) (identity.Buyer, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return identity.Buyer{}, errors.New("malformed token")
	}

	var claims stubClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return identity.Buyer{}, errors.New("malformed token payload")
	}
	if claims.Sub == "" {
		return identity.Buyer{}, errors.New("token missing subject")
	}

	return identity.Buyer{ID: claims.Sub, Metadata: claims.Metadata}, nil
}
