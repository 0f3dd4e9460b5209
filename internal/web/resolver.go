package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/storage"
)

// UserResolver turns a request into the identity making it. Session and
// CSRF machinery live in an external collaborator; the engine only needs
// the resolved user.
type UserResolver interface {
	CurrentUser(r *http.Request) (*domain.User, error)
}

// HeaderResolver trusts a header set by the authenticating reverse proxy.
type HeaderResolver struct {
	Header string
	Store  *storage.DB
}

// CurrentUser looks up the user named by the trusted header. A missing
// header is treated as an unauthenticated request.
func (h *HeaderResolver) CurrentUser(r *http.Request) (*domain.User, error) {
	username := r.Header.Get(h.Header)
	if username == "" {
		return nil, fmt.Errorf("%w: missing %s header", domain.ErrForbidden, h.Header)
	}
	user, err := h.Store.FindUserByUsername(r.Context(), username)
	if errors.Is(err, domain.ErrNotFound) {
		// An identity the store does not know is an authorization problem,
		// not a missing resource.
		return nil, fmt.Errorf("%w: unknown user %s", domain.ErrForbidden, username)
	}
	return user, err
}
