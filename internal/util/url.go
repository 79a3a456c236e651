package util

import (
	"errors"
	"net/url"
	"strings"
)

var errNotHTTPURL = errors.New("must be an absolute http or https URL")

// ValidateHTTPURL checks that raw is an absolute http(s) URL with a host and
// no control characters.
func ValidateHTTPURL(raw string) error {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return errNotHTTPURL
	}

	// Must not contain newlines or carriage returns (header injection)
	if strings.ContainsAny(raw, "\r\n\t") {
		return errNotHTTPURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errNotHTTPURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errNotHTTPURL
	}
	if u.Host == "" || u.User != nil {
		return errNotHTTPURL
	}
	return nil
}

// JoinURL appends path to base, avoiding a doubled slash
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
