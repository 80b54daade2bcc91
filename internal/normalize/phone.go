// Package normalize turns raw spreadsheet cell values into canonical
// candidate fields.
package normalize

import (
	"strings"
	"unicode"

	"github.com/garnizeh/recruit/internal/apperr"
)

// DefaultMinPhoneDigits is used when callers pass a non-positive minimum.
const DefaultMinPhoneDigits = 7

// Phone strips every non-digit rune from raw. Fewer than minDigits remaining
// digits is a ValidationError. Applying Phone to its own output is a no-op.
func Phone(raw string, minDigits int) (string, error) {
	if minDigits <= 0 {
		minDigits = DefaultMinPhoneDigits
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		// ASCII only: unicode.IsDigit would accept e.g. Arabic-Indic digits
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < minDigits {
		return "", apperr.Validation("phone", "%q has %d digit(s), need at least %d", raw, len(digits), minDigits)
	}
	return digits, nil
}

// Email lower-cases and trims raw and performs a minimal shape check.
func Email(raw string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(raw))
	if e == "" {
		return "", apperr.Validation("email", "missing")
	}
	at := strings.IndexByte(e, '@')
	if at <= 0 || at == len(e)-1 || strings.Count(e, "@") != 1 || strings.IndexFunc(e, unicode.IsSpace) >= 0 {
		return "", apperr.Validation("email", "%q is not a valid address", raw)
	}
	return e, nil
}
