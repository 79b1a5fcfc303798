package handlers

import (
	"context"

	"github.com/HammerMeetNail/drawmaster/internal/identity"
)

type contextKey string

const identityContextKey contextKey = "identity"

func SetIdentityInContext(ctx context.Context, id *identity.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func GetIdentityFromContext(ctx context.Context) *identity.Identity {
	id, _ := ctx.Value(identityContextKey).(*identity.Identity)
	return id
}
