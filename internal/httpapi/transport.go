package httpapi

import (
	"net/http"

	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
)

// bearerTransport attaches the stored access token to every request.
type bearerTransport struct {
	tokens    repository.TokenStore
	transport http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := b.tokens.Token(req.Context())
	if err != nil {
		return nil, err
	}
	if token == "" {
		return b.transport.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+token)
	return b.transport.RoundTrip(authed)
}
