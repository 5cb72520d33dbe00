package util

import (
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// NormalizeAddress extracts a bare, lowercased email address from a From header.
//   - "Name <User@Example.COM>" -> "user@example.com"
//   - "User@Example.COM " -> "user@example.com"
//   - encoded-word display names are decoded by the parser and dropped
//
// Returns empty string when the value is empty or holds nothing address-like;
// callers treat that as "skip this message". Applying it twice is a no-op.
func NormalizeAddress(fromHeader string) string {
	raw := strings.TrimSpace(fromHeader)
	if raw == "" {
		return ""
	}

	if addr, err := mail.ParseAddress(raw); err == nil && addr != nil {
		return canonical(addr.Address)
	}

	// Some senders put garbage around the brackets that RFC 5322 rejects,
	// e.g. unquoted commas in the display name. The first bracketed address
	// wins.
	rest := raw
	for {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '>')
		if end < 0 {
			break
		}
		if addr := canonical(rest[open+1 : open+end]); addr != "" {
			return addr
		}
		rest = rest[open+end+1:]
	}

	// A list: first parseable entry wins.
	if strings.Contains(raw, ",") {
		for _, p := range strings.Split(raw, ",") {
			if a, err := mail.ParseAddress(strings.TrimSpace(p)); err == nil && a != nil {
				return canonical(a.Address)
			}
		}
	}

	return canonical(raw)
}

// canonical lowercases and trims, and rejects anything that does not look
// like local@domain.
func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return ""
	}
	if strings.ContainsAny(s, " \t\r\n<>\",") {
		return ""
	}
	return s
}
