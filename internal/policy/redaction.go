package policy

import "regexp"

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern      = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern       = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	nationalIDPattern = regexp.MustCompile(`\b\d{3}[- ]?\d{6}[- ]?\d\b`)
)

// RedactPII masks high-risk PII patterns before transcript turns are
// archived. Voice transcripts of legal consultations routinely carry
// emails, phone numbers, card numbers, and national identity numbers.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Card redaction runs before phone and national-ID so long digit runs
	// are not claimed by the looser patterns first.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = nationalIDPattern.ReplaceAllString(out, "[REDACTED_NATIONAL_ID]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}
