package services

import (
	"context"
	"errors"

	"github.com/HammerMeetNail/drawmaster/internal/identity"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
)

// Enricher decorates responses with identity data. Lookups are best-effort:
// a failure is logged and the identity is left out, never returned as an error.
type Enricher struct {
	resolver identity.Resolver
	logger   *logging.Logger
}

func NewEnricher(resolver identity.Resolver, logger *logging.Logger) *Enricher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Enricher{resolver: resolver, logger: logger}
}

// Identities looks up each distinct uid once. Uids that could not be resolved
// are absent from the result.
func (e *Enricher) Identities(ctx context.Context, uids []string) map[string]*identity.Identity {
	out := make(map[string]*identity.Identity, len(uids))
	if e == nil || e.resolver == nil {
		return out
	}
	seen := make(map[string]bool, len(uids))
	for _, uid := range uids {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		if id := e.lookup(ctx, uid); id != nil {
			out[uid] = id
		}
	}
	return out
}

func (e *Enricher) lookup(ctx context.Context, uid string) *identity.Identity {
	id, err := e.resolver.Lookup(ctx, uid)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		e.logger.Debug("identity not found for enrichment", logging.Fields{"uid": uid})
		return nil
	case err != nil:
		e.logger.Warn("identity lookup failed", logging.Fields{"uid": uid, "error": err})
		return nil
	}
	return id
}

func emailOf(ids map[string]*identity.Identity, uid string) *string {
	id, ok := ids[uid]
	if !ok || id.Email == "" {
		return nil
	}
	email := id.Email
	return &email
}

func displayNameOf(ids map[string]*identity.Identity, uid string, local *string) *string {
	if local != nil {
		return local
	}
	if id, ok := ids[uid]; ok {
		return id.DisplayName
	}
	return nil
}
