package session

import (
	"errors"
	"net/http"

	"exptrack/internal/api"
	"exptrack/internal/core"
)

func loginFailure(err error) string {
	msg := api.ServerMessage(err)
	switch api.StatusOf(err) {
	case http.StatusForbidden:
		if msg != "" {
			return msg
		}
		return MsgBlocked
	case http.StatusUnauthorized:
		if msg != "" {
			return msg
		}
		return MsgInvalidCredentials
	}
	return failureMessage(err, MsgLoginFailed)
}

// failureMessage prefers the server's text, then a transport description,
// then fallback.
func failureMessage(err error, fallback string) string {
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	if api.StatusOf(err) == 0 {
		return api.UserMessage(err, fallback)
	}
	return fallback
}

func registrationInvalid(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingCredentials):
		return MsgMissingCredentials
	case errors.Is(err, core.ErrMissingEmail):
		return "Please enter your email address"
	case errors.Is(err, core.ErrWeakPassword):
		return "Password must be at least 6 characters"
	}
	return MsgRegisterFailed
}
