package handlers

import "time"

const (
	oauthStateCookie    = "oauth_state"
	oauthProviderCookie = "oauth_provider"
	oauthCookieTTL      = 10 * time.Minute

	maxBodyBytes = 1 << 20

	// statusClientClosedRequest is nginx's code for a client that went away.
	statusClientClosedRequest = 499

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
	ErrRequestCanceled     = "Request canceled"
)
