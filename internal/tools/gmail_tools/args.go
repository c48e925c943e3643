package gmail_tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/tools/batch"
)

// DateLayout is the date form accepted by the transaction tools.
const DateLayout = "2006-01-02"

func stringArg(args map[string]any, name, def string) string {
	if v, ok := args[name].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func boolArg(args map[string]any, name string) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// intArg reads a whole number that JSON clients send as float64 and some
// agents send as a string.
func intArg(args map[string]any, name string, def int) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return def, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be a whole number, got %v", name, v)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number, got %q", name, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// amountArg accepts a number or a ledger string such as "1 049,12".
func amountArg(args map[string]any, name string) (gmail.Amount, error) {
	switch v := args[name].(type) {
	case nil:
		return 0, nil
	case float64:
		return gmail.AmountFromFloat(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return gmail.ParseAmount(v)
	default:
		return 0, fmt.Errorf("%s must be a number or a string", name)
	}
}

func dateArg(args map[string]any, name string) (time.Time, error) {
	s, _ := args[name].(string)
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD form, got %q", name, s)
	}
	return d, nil
}

// keywordsArg reads an optional string or array of strings.
func keywordsArg(args map[string]any, name string) ([]string, error) {
	if v, ok := args[name]; !ok || v == nil || v == "" {
		return nil, nil
	}
	return batch.ParseStringOrArray(args[name], name)
}

// transactionQuery builds the bounded query described by the date, amount,
// keywords, merchant and window_days arguments. A merchant selects the
// receipt-oriented query, which ignores keywords.
func transactionQuery(args map[string]any, defaultWindow int) (string, error) {
	date, err := dateArg(args, "date")
	if err != nil {
		return "", err
	}
	amount, err := amountArg(args, "amount")
	if err != nil {
		return "", err
	}
	window, err := intArg(args, "window_days", defaultWindow)
	if err != nil {
		return "", err
	}

	if merchant := stringArg(args, "merchant", ""); merchant != "" {
		return gmail.BuildReceiptQuery(date, amount, merchant, window)
	}

	keywords, err := keywordsArg(args, "keywords")
	if err != nil {
		return "", err
	}
	return gmail.BuildQuery(date, amount, keywords, window)
}
