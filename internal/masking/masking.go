// Package masking replaces high-cardinality and PII-shaped tokens in a
// message with placeholders from a closed set, so that otherwise-identical
// log lines collapse to the same template regardless of the concrete values
// they carry.
package masking

import (
	"regexp"
	"strings"
)

// Placeholder values. The masker never emits anything outside this set.
const (
	PlaceholderNum       = "<NUM>"
	PlaceholderIP        = "<IP>"
	PlaceholderEmail     = "<EMAIL>"
	PlaceholderTimestamp = "<TIMESTAMP>"
	PlaceholderUUID      = "<UUID>"
	PlaceholderPath      = "<PATH>"
	PlaceholderURL       = "<URL>"
	PlaceholderHex       = "<HEX>"
	PlaceholderB64       = "<B64>"
)

// Ordered regex set. Order matters: earlier classes may consume substrings
// that would otherwise match later, more generic ones (e.g. a UUID's hex
// runs would otherwise be eaten by the HEX class). This mirrors the order
// fixed by the specification, which differs from some looser reference
// orderings that mask timestamps before URLs and never anchor IPv6 ahead of
// emails.
var (
	reTimestamp = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d{1,9})?(?:Z|[+-](?:\d{2}(?::?\d{2})?|\d{4}))?\b`)
	reUUID      = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	reEmail     = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	reURL       = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://[^\s"']+`)
	rePath      = regexp.MustCompile(`(?:/[\w.\-]+){2,}|\.\./[\w.\-]+(?:/[\w.\-]+)*|\./[\w.\-]+(?:/[\w.\-]+)*|~/[\w.\-]+(?:/[\w.\-]+)*`)
	reIPv6      = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`)
	reIPv4      = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`)
	reB64       = regexp.MustCompile(`\b[A-Za-z0-9+/]{16,}={0,2}\b`)
	reHex       = regexp.MustCompile(`\b[0-9a-fA-F]{8,}\b`)

	// reNumberOrPlaceholder matches either an already-emitted placeholder
	// (passed through unchanged) or a bare numeric token. Matching both in
	// one alternation, rather than running the number pattern alone, keeps
	// digits inside a placeholder like <B64> from ever being visited.
	reNumberOrPlaceholder = regexp.MustCompile(`<[^<>]*>|-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`)
)

// Mask applies the full ordered substitution pipeline to text. It is pure
// and idempotent: Mask(Mask(x)) == Mask(x) for all x. Earlier classes
// (timestamp, UUID, email, URL, path, IP, base64, hex) can still leave
// digits inside their own placeholder spelling (<B64> being the obvious
// case); maskNumbers is placeholder-aware so it never re-masks those.
func Mask(text string) string {
	s := reTimestamp.ReplaceAllString(text, PlaceholderTimestamp)
	s = reUUID.ReplaceAllString(s, PlaceholderUUID)
	s = reEmail.ReplaceAllString(s, PlaceholderEmail)
	s = reURL.ReplaceAllString(s, PlaceholderURL)
	s = rePath.ReplaceAllString(s, PlaceholderPath)
	s = reIPv6.ReplaceAllString(s, PlaceholderIP)
	s = reIPv4.ReplaceAllString(s, PlaceholderIP)
	s = reB64.ReplaceAllString(s, PlaceholderB64)
	s = reHex.ReplaceAllString(s, PlaceholderHex)
	s = maskNumbers(s)
	return s
}

// maskNumbers replaces standalone numeric tokens with <NUM>, leaving any
// placeholder already emitted by an earlier pass untouched. <B64> itself
// contains the digits "64", so a number pattern run alone would re-mask it
// into the corrupt "<B<NUM>>"; matching placeholders in the same pass and
// passing them through is what keeps placeholders atomic.
func maskNumbers(s string) string {
	return reNumberOrPlaceholder.ReplaceAllStringFunc(s, func(tok string) string {
		if strings.HasPrefix(tok, "<") {
			return tok
		}
		return PlaceholderNum
	})
}

// IsPlaceholder reports whether a token is one of the closed placeholder
// set, used by the Drain tree to treat placeholders as atomic wildcard
// tokens rather than literal text.
func IsPlaceholder(token string) bool {
	switch token {
	case PlaceholderNum, PlaceholderIP, PlaceholderEmail, PlaceholderTimestamp,
		PlaceholderUUID, PlaceholderPath, PlaceholderURL, PlaceholderHex, PlaceholderB64:
		return true
	}
	return isSemanticPlaceholder(token)
}
