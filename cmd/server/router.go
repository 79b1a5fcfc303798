package main

import (
	"net/http"

	"github.com/HammerMeetNail/drawmaster/internal/handlers"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/middleware"
)

type routes struct {
	health   *handlers.HealthHandler
	profiles *handlers.ProfileHandler
	friends  *handlers.FriendHandler
	sessions *handlers.SessionHandler

	auth           *middleware.AuthMiddleware
	requestLimiter *middleware.RateLimiter
	inviteLimiter  *middleware.RateLimiter

	logger *logging.Logger
	secure bool
}

func newRouter(rt routes) http.Handler {
	authed := func(h http.HandlerFunc) http.Handler {
		return rt.auth.RequireAuth(h)
	}
	limited := func(rl *middleware.RateLimiter, h http.HandlerFunc) http.Handler {
		if rl == nil {
			return authed(h)
		}
		return rt.auth.RequireAuth(rl.Middleware(h))
	}

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", rt.health.Health)
	mux.HandleFunc("GET /ready", rt.health.Ready)
	mux.HandleFunc("GET /live", rt.health.Live)

	mux.Handle("POST /profiles", authed(rt.profiles.Create))
	mux.Handle("GET /profiles/me", authed(rt.profiles.Get))
	mux.Handle("PUT /profiles/me", authed(rt.profiles.Update))
	mux.Handle("POST /games", authed(rt.profiles.RecordScore))

	mux.Handle("GET /friends", authed(rt.friends.List))
	mux.Handle("GET /friends/requests", authed(rt.friends.Incoming))
	mux.Handle("GET /friends/requests/sent", authed(rt.friends.Sent))
	mux.Handle("POST /friends/request", limited(rt.requestLimiter, rt.friends.SendRequest))
	mux.Handle("POST /friends/accept", authed(rt.friends.Accept))
	mux.Handle("POST /friends/reject", authed(rt.friends.Reject))

	mux.Handle("POST /multiplayer/invite", limited(rt.inviteLimiter, rt.sessions.SendInvite))
	mux.Handle("POST /multiplayer/invite/accept", authed(rt.sessions.AcceptInvite))
	mux.Handle("POST /multiplayer/invite/reject", authed(rt.sessions.RejectInvite))
	mux.Handle("GET /multiplayer/games/{id}", authed(rt.sessions.GetGame))
	mux.Handle("POST /multiplayer/games/{id}/submit", authed(rt.sessions.Submit))

	// Build middleware chain (order matters: outermost last). The request
	// logger sits inside Authenticate so it can tag the uid.
	var handler http.Handler = mux
	handler = middleware.NewRequestLogger(rt.logger).Apply(handler)
	handler = rt.auth.Authenticate(handler)
	handler = middleware.NewSecurityHeaders(rt.secure).Apply(handler)
	return handler
}
