/*
posting.go - Posting detection for dinners

PURPOSE:
  A dinner is "posted" once its revenue has been copied into a generic
  revenue movement by the explicit post action. Detection is a text match
  on the movement description, so the description format is generated in
  exactly one place (PostingDescription) and shared by the poster and the
  detector - they cannot drift.

PATTERNS RECOGNIZED:
  canonical: "Dinner — <label> — Revenue"
  legacy:    "Dinner <date-or-#id> (ID:<id>) — Revenue"
  superset:  any revenue movement whose description carries the dinner's
             "(ID:<n>)" marker, or "Dinner" together with the delimited
             "— <label> —" form

  <label> is the dinner title if set, otherwise its date, otherwise #<id>.

The superset matches keep dinners posted under earlier conventions from
being counted twice (once in the movements and once in the projection).
A false "unposted" double-counts real money, so detection favors recall.
*/
package fund

import (
	"fmt"
	"strings"
)

// PostingLabel is the human label used in posting descriptions: title,
// else date, else #id.
func PostingLabel(d Dinner) string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	if d.Date != "" {
		return d.Date
	}
	return fmt.Sprintf("#%d", d.ID)
}

// PostingDescription is the canonical revenue description written by the
// post action. The detector recognizes it by prefix.
func PostingDescription(d Dinner) string {
	return fmt.Sprintf("Dinner — %s — Revenue", PostingLabel(d))
}

// PostingExpenseDescription is the canonical description for the expense
// side of a posted dinner. Not consulted by the detector.
func PostingExpenseDescription(d Dinner) string {
	return fmt.Sprintf("Dinner — %s — Expenses", PostingLabel(d))
}

// legacyPostingDescription is the pre-title convention still present in
// older rows.
func legacyPostingDescription(d Dinner) string {
	ref := d.Date
	if ref == "" {
		ref = fmt.Sprintf("#%d", d.ID)
	}
	return fmt.Sprintf("Dinner %s (ID:%d) — Revenue", ref, d.ID)
}

// idMarker is the per-id fallback embedded in every legacy description.
func idMarker(d Dinner) string {
	return fmt.Sprintf("(ID:%d)", d.ID)
}

// IsPosted reports whether a revenue movement already records this
// dinner's revenue. Once true it stays true as unrelated movements are
// added.
func IsPosted(d Dinner, movements []Movement) bool {
	canonical := PostingDescription(d)
	legacy := legacyPostingDescription(d)
	// Delimited so one dinner's label cannot match inside another's:
	// "— #1 —" is not a substring of "— #12 —", "— Gala —" not of
	// "— Gala Night —".
	delimited := fmt.Sprintf("— %s —", PostingLabel(d))
	marker := idMarker(d)

	for _, m := range movements {
		if m.Kind != KindRevenue {
			continue
		}
		if strings.HasPrefix(m.Description, canonical) {
			// The canonical pattern also has to agree on the date, when
			// both sides carry one.
			if d.Date == "" || m.Date == "" || m.Date == d.Date {
				return true
			}
			continue
		}
		if strings.HasPrefix(m.Description, legacy) {
			return true
		}
		if strings.Contains(m.Description, marker) {
			return true
		}
		if strings.Contains(m.Description, "Dinner") && strings.Contains(m.Description, delimited) {
			return true
		}
	}
	return false
}
