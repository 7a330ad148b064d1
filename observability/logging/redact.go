package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// Key fragments that mark an attribute as secret. Matching is on the
// lower-cased key, so "hmac_secret", "AuthSecret" and "archive_password" all
// hit.
var secretKeyFragments = []string{"secret", "password", "passphrase", "token", "authorization", "dsn"}

// Keys that contain a fragment but name public values.
var publicKeys = map[string]struct{}{
	"payment_token": {},
	"royalty_token": {},
	"token":         {},
}

// IsSecretKey reports whether values logged under key are hidden.
func IsSecretKey(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if _, ok := publicKeys[normalized]; ok {
		return false
	}
	for _, fragment := range secretKeyFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

// MaskField hides value behind RedactedValue. Blank values stay blank so a
// missing secret is still visible in startup logs.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" {
		return slog.String(key, "")
	}
	return slog.String(key, RedactedValue)
}

// MaskDSN keeps the location of a database DSN and drops its credentials.
// URL DSNs lose their password; keyword DSNs lose their password= pair.
func MaskDSN(key, dsn string) slog.Attr {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return slog.String(key, "")
	}
	if u, err := url.Parse(trimmed); err == nil && u.Scheme != "" && u.Host != "" {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
		q := u.Query()
		if q.Has("password") {
			q.Set("password", "xxxxx")
			u.RawQuery = q.Encode()
		}
		return slog.String(key, strings.ReplaceAll(u.String(), "xxxxx", RedactedValue))
	}
	fields := strings.Fields(trimmed)
	for i, field := range fields {
		if name, _, ok := strings.Cut(field, "="); ok && strings.EqualFold(name, "password") {
			fields[i] = name + "=" + RedactedValue
		}
	}
	return slog.String(key, strings.Join(fields, " "))
}

// redactAttr is the handler hook that hides string values logged under
// secret keys by callers that forgot MaskField.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() != slog.KindString || attr.Value.String() == "" || attr.Value.String() == RedactedValue {
		return attr
	}
	if IsSecretKey(attr.Key) {
		return slog.String(attr.Key, RedactedValue)
	}
	return attr
}
