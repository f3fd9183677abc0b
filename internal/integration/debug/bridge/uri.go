package bridge

import (
	"fmt"
	"net/url"
)

// Scheme is the URI scheme of documents owned by a session.
const Scheme = "debugger"

// NormalizeURI places raw in sessionID's namespace: the scheme becomes
// Scheme and the authority becomes sessionID. URIs with another explicit
// scheme are foreign references and are only canonicalized.
// NormalizeURI is idempotent.
func NormalizeURI(raw, sessionID string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", raw, err)
	}
	if u.Scheme != "" && u.Scheme != Scheme {
		return u.String(), nil
	}
	return own(u, sessionID), nil
}

// own rewrites u into sessionID's namespace and returns its string form.
func own(u *url.URL, sessionID string) string {
	if u.Opaque != "" {
		u.Path = u.Opaque
		u.Opaque = ""
	}
	u.Scheme = Scheme
	u.User = nil
	u.Host = sessionID
	return u.String()
}

// ownerOf returns the session ID and cache key of a session-owned URI.
func ownerOf(raw string) (sessionID, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse uri %q: %w", raw, err)
	}
	if u.Scheme != Scheme {
		return "", "", fmt.Errorf("uri %q: %w", raw, ErrForeignScheme)
	}
	sessionID = u.Host
	return sessionID, own(u, sessionID), nil
}
