package gmail

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// QueryDateLayout is the date form Gmail's after:/before: operators expect.
const QueryDateLayout = "2006/01/02"

// receiptSubjects is the subject clause that narrows a search to transactional mail.
const receiptSubjects = `subject:("order confirmation" OR "your receipt" OR "invoice" OR "payment confirmation" OR "order details" OR "booking confirmation") OR "receipt" OR "invoice" OR "order"`

// Amount is a monetary value in minor units (cents). Searching ignores the sign.
type Amount int64

// ParseAmount parses a ledger amount written with either decimal mark and
// optional thousands grouping: "1049.12", "1049,12", "1 049,12", "1,049.12",
// "1.049,12", "-42". A trailing currency code or symbol is ignored.
func ParseAmount(s string) (Amount, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, errors.New("empty amount")
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-', r == '+', r == '\'', unicode.IsSpace(r):
			// sign and grouping separators
		case unicode.IsLetter(r), unicode.Is(unicode.Sc, r):
			// currency
		default:
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	// The last separator followed by one or two digits is the decimal mark;
	// every other separator is grouping.
	intPart, fracPart := digits, ""
	if i := strings.LastIndexAny(digits, ".,"); i >= 0 {
		tail := digits[i+1:]
		if len(tail) == 1 || len(tail) == 2 {
			intPart, fracPart = digits[:i], tail
		}
	}
	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if strings.ContainsAny(fracPart, ".,") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents, _ := strconv.ParseInt(fracPart, 10, 64)
	return Amount(units*100 + cents), nil
}

// AmountFromFloat converts a float amount to minor units, rounding to the cent.
func AmountFromFloat(f float64) Amount {
	if f < 0 {
		f = -f
	}
	return Amount(f*100 + 0.5)
}

func (a Amount) abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// String renders the amount as plain digits with a period decimal mark.
func (a Amount) String() string {
	v := a.abs()
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}

// Forms returns the textual renderings an email may use for the amount, in a
// stable order and without duplicates.
func (a Amount) Forms() []string {
	v := a.abs()
	units := strconv.FormatInt(int64(v/100), 10)
	cents := fmt.Sprintf("%02d", int64(v%100))

	forms := []string{
		units + "." + cents,
		units + "," + cents,
		group(units, " ") + "," + cents,
		group(units, ",") + "." + cents,
		group(units, ".") + "," + cents,
	}
	if v%100 == 0 {
		forms = append(forms, units, group(units, ","), group(units, " "))
	}

	seen := make(map[string]bool, len(forms))
	out := forms[:0]
	for _, f := range forms {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// group inserts sep between every three digits from the right.
func group(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// DateWindow returns the end-exclusive window [anchor-windowDays, anchor+windowDays+1).
func DateWindow(anchor time.Time, windowDays int) (after, before time.Time) {
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -windowDays), day.AddDate(0, 0, windowDays+1)
}

// BuildQuery builds a bounded search for a transaction: a date window around
// anchor, an OR of the amount's renderings and an OR of the keywords. Without
// keywords the query covers date and amount only.
func BuildQuery(anchor time.Time, amount Amount, keywords []string, windowDays int) (string, error) {
	if windowDays < 0 {
		return "", fmt.Errorf("window days must not be negative, got %d", windowDays)
	}

	parts := []string{dateClause(anchor, windowDays)}
	if !amount.IsZero() {
		parts = append(parts, amountClause(amount))
	}
	if kw := keywordClause(keywords); kw != "" {
		parts = append(parts, kw)
	}
	return strings.Join(parts, " "), nil
}

// BuildReceiptQuery builds the receipt-oriented variant: the date window,
// receipt subject terms, an optional merchant restricted to subject or sender,
// and the amount renderings.
func BuildReceiptQuery(anchor time.Time, amount Amount, merchant string, windowDays int) (string, error) {
	if windowDays < 0 {
		return "", fmt.Errorf("window days must not be negative, got %d", windowDays)
	}

	parts := []string{dateClause(anchor, windowDays), receiptSubjects}
	if m := strings.TrimSpace(merchant); m != "" {
		m = strings.ReplaceAll(m, `"`, `\"`)
		parts = append(parts, fmt.Sprintf(`(subject:("%s") OR from:("%s"))`, m, m))
	}
	if !amount.IsZero() {
		parts = append(parts, amountClause(amount))
	}
	return strings.Join(parts, " "), nil
}

func dateClause(anchor time.Time, windowDays int) string {
	after, before := DateWindow(anchor, windowDays)
	return "after:" + after.Format(QueryDateLayout) + " before:" + before.Format(QueryDateLayout)
}

func amountClause(a Amount) string {
	forms := a.Forms()
	quoted := make([]string, len(forms))
	for i, f := range forms {
		quoted[i] = `"` + f + `"`
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}

func keywordClause(keywords []string) string {
	var terms []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ReplaceAll(kw, `"`, ""))
		if kw == "" {
			continue
		}
		if strings.ContainsAny(kw, " \t") {
			kw = `"` + kw + `"`
		}
		terms = append(terms, kw)
	}
	if len(terms) == 0 {
		return ""
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}
