package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

// requestScheme derives the scheme the client used, respecting TLS and
// X-Forwarded-Proto.
func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// joinURL is the address a player opens to join the session identified by code.
func joinURL(r *http.Request, prefix, code string) string {
	u := url.URL{
		Scheme:   requestScheme(r),
		Host:     r.Host,
		Path:     strings.TrimSuffix(prefix, "/") + "/",
		RawQuery: url.Values{"code": {code}}.Encode(),
	}
	return u.String()
}
