// Package category maps raw budget/smeta codes to the canonical display
// categories of the dashboard.
//
// The data warehouse carries two seasonal budgets ("лето", "зима") plus two
// off-schedule codes that the dashboard presents as a single merged category.
// The off-schedule plan is not observed data: it is a fixed share of the
// seasonal plans (business policy, see PlanShare).
package category

import "strings"

// Raw smeta codes as they appear in the fact tables.
const (
	CodeSummer       = "лето"
	CodeWinter       = "зима"
	CodeOffSchedule1 = "внерегл_ч_1"
	CodeOffSchedule2 = "внерегл_ч_2"
)

// OffScheduleLabel is the merged display name for both off-schedule codes.
const OffScheduleLabel = "внерегламент"

// FallbackTitle is used when neither a code nor a title hint is available.
const FallbackTitle = "Прочее"

// PlanShare is the off-schedule planned total expressed as a share of the
// seasonal (summer + winter) planned totals. Policy constant with no
// documented derivation; do not compute it from raw off-schedule rows.
const PlanShare = 0.43

// merged collapses the off-schedule codes into one label used as both the
// grouping key and the display title.
var merged = map[string]string{
	CodeOffSchedule1: OffScheduleLabel,
	CodeOffSchedule2: OffScheduleLabel,
}

// Kind enumerates the fixed set of dashboard categories.
type Kind int

const (
	Other Kind = iota
	Summer
	Winter
	OffSchedule
)

func (k Kind) String() string {
	switch k {
	case Summer:
		return CodeSummer
	case Winter:
		return CodeWinter
	case OffSchedule:
		return OffScheduleLabel
	default:
		return "other"
	}
}

// Fold normalizes a code for comparison: trimmed and lower-cased.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KindOf classifies a raw smeta code. Unknown or empty codes are Other.
func KindOf(code string) Kind {
	switch Fold(code) {
	case CodeSummer:
		return Summer
	case CodeWinter:
		return Winter
	case CodeOffSchedule1, CodeOffSchedule2:
		return OffSchedule
	default:
		return Other
	}
}

// IsMergeSource reports whether the code is one of the off-schedule codes
// that contribute zero to planned totals.
func IsMergeSource(code string) bool {
	return KindOf(code) == OffSchedule
}

// Resolve returns the (key, title) pair for a raw smeta code and an optional
// display-title hint.
//
// Fallback order for the base value is code, then hint, then FallbackTitle.
// If the base value matches a merge entry (case-insensitive) both key and
// title are the merged label. Resolve is pure and always returns non-empty
// strings.
func Resolve(code, hint string) (key, title string) {
	candidate := strings.TrimSpace(code)
	hint = strings.TrimSpace(hint)

	fallback := candidate
	if fallback == "" {
		fallback = hint
	}
	if fallback == "" {
		fallback = FallbackTitle
	}

	if label, ok := merged[strings.ToLower(fallback)]; ok {
		return label, label
	}

	key = candidate
	if key == "" {
		key = fallback
	}
	title = hint
	if title == "" {
		title = fallback
	}
	return Fold(key), title
}
