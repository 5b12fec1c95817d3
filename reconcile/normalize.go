/*
normalize.go - Canonical forms for free-text fields

PURPOSE:
  Both sources carry free text typed by humans: student names with stray
  punctuation and inconsistent casing, dates in whatever format the sheet
  author preferred. Normalization produces comparable keys so the scorer
  and differ can test equality without caring about formatting.

POLICY:
  NormalizeName: lowercase, strip everything outside letters/digits/space,
  collapse runs of whitespace, trim. The result is a comparison key only,
  never shown to users.

  NormalizeDate: blank input means "not set" (nil). A parseable input
  (ISO, day/month/year or month/day/year slashes) yields the ISO form.
  An unparseable non-empty input is returned VERBATIM: comparisons against
  it simply won't match. This is deliberate degrade-gracefully behavior,
  not an error - one malformed row must never abort the run.

SEE ALSO:
  - score.go: Uses normalized names and dates as equality signals
  - diff.go:  Uses normalized dates for the start-date comparison
*/
package reconcile

import (
	"strings"
	"time"
	"unicode"
)

const isoDate = "2006-01-02"

// dateLayouts are tried in order. Day-first wins for ambiguous slash
// dates; time.Parse rejects layouts whose month field exceeds 12, so
// unambiguous inputs land on the right interpretation either way.
var dateLayouts = []string{
	isoDate,
	"2/1/2006",
	"1/2/2006",
}

// NormalizeName reduces a free-text name to a comparison key.
// Applying it twice yields the same result as applying it once.
func NormalizeName(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeDate canonicalizes a free-text date to "YYYY-MM-DD".
// Returns nil for blank input ("not set"). Returns the original text
// unchanged when no layout parses it.
func NormalizeDate(text string) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			iso := t.Format(isoDate)
			return &iso
		}
	}
	return &text
}

// parseISODate is the strict parser used for interval arithmetic.
// Unlike NormalizeDate it reports failure instead of degrading, because
// proximity scoring needs a real time.Time to measure day distances.
func parseISODate(text string) (time.Time, bool) {
	t, err := time.Parse(isoDate, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
