package core

import (
	"fmt"

	"golang.org/x/oauth2"

	"tokenvault/internal/di"
)

// DescriptorsFromOAuth2 converts an upstream OAuth2 token into descriptors:
// an access token carrying the upstream expiry and, when present, a refresh
// token without expiry.
func DescriptorsFromOAuth2(subject string, token *oauth2.Token) ([]TokenDescriptor, error) {
	if token == nil {
		return nil, di.ArgumentNilError{Param: "token"}
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: upstream token has no access token", ErrInvalidDescriptor)
	}

	access := TokenDescriptor{
		Subject: subject,
		Type:    TokenTypeAccess,
		Payload: []byte(token.AccessToken),
	}
	if !token.Expiry.IsZero() {
		exp := token.Expiry.UTC()
		access.ExpirationDate = &exp
	}
	out := []TokenDescriptor{access}

	if token.RefreshToken != "" {
		out = append(out, TokenDescriptor{
			Subject: subject,
			Type:    TokenTypeRefresh,
			Payload: []byte(token.RefreshToken),
		})
	}
	return out, nil
}
