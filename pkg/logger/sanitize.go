package logger

import (
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

const redacted = "[REDACTED]"

// sensitiveQueryKeys are the login parameters that must never reach a log line,
// matched case-insensitively.
var sensitiveQueryKeys = map[string]struct{}{
	"password":   {},
	"token":      {},
	"email":      {},
	"rememberme": {},
}

// MaskEmail keeps the first character of the local part and of the domain plus
// the top-level domain, e.g. "ada@example.com" becomes "a***@e***.com".
// The mask has a fixed width so log lines do not leak name lengths.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "[invalid-email]"
	}

	local, domain := email[:at], email[at+1:]

	tld := ""
	if dot := strings.LastIndex(domain, "."); dot > 0 {
		domain, tld = domain[:dot], domain[dot:]
	}

	return firstRune(local) + "***@" + firstRune(domain) + "***" + tld
}

func firstRune(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return "?"
	}
	return s[:size]
}

// RedactQuery returns rawQuery with the values of sensitive parameters replaced.
// Other parameters are kept; a query that cannot be parsed is dropped entirely.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redacted
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		_, sensitive := sensitiveQueryKeys[strings.ToLower(key)]
		for _, value := range values[key] {
			if sensitive {
				value = redacted
			} else {
				value = url.QueryEscape(value)
			}
			parts = append(parts, url.QueryEscape(key)+"="+value)
		}
	}
	return strings.Join(parts, "&")
}
