// Package identity is the edge to the identity provider: token verification,
// uid/email resolution and the lookups used to decorate responses.
package identity

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("identity not found")
	ErrInvalidToken = errors.New("invalid identity token")
)

type Identity struct {
	UID         string  `json:"uid"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name,omitempty"`
}

// Resolver maps between uids and emails. Both methods return ErrNotFound for
// unknown identities; any other error means the provider itself failed.
type Resolver interface {
	ResolveEmail(ctx context.Context, email string) (string, error)
	Lookup(ctx context.Context, uid string) (*Identity, error)
}
