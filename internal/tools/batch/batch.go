package batch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Result represents the result of a single operation in a batch
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped,omitempty"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a parameter that can be a single string, an
// array of strings, or a string holding a JSON array of strings. Agents
// often send the latter.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var items []any
			if err := json.Unmarshal([]byte(v), &items); err == nil {
				return parseItems(items, paramName)
			}
		}
		return []string{v}, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return parseItems(items, paramName)
	case []any:
		return parseItems(v, paramName)
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

func parseItems(items []any, paramName string) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	result := make([]string, 0, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
		}
		if str == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		result = append(result, str)
	}
	return result, nil
}

// Summarize counts results by status.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			br.Successful++
		case StatusSkipped:
			br.Skipped++
		default:
			br.Failed++
		}
	}
	return br
}

// FormatResults renders results as indented JSON with totals.
func FormatResults(results []Result) (string, error) {
	jsonBytes, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal batch results: %w", err)
	}
	return string(jsonBytes), nil
}

// ProcessBatch runs fn on each id in order. A failing item does not affect
// the others unless stop reports true for its error; the remaining ids are
// then marked skipped. stop may be nil.
func ProcessBatch[T any](ids []string, fn func(id string) (T, error), stop func(error) bool) []Result {
	results := make([]Result, 0, len(ids))

	for i, id := range ids {
		res, err := fn(id)
		if err != nil {
			results = append(results, NewErrorResult(id, err))
			if stop != nil && stop(err) {
				for _, rest := range ids[i+1:] {
					results = append(results, Result{ID: rest, Status: StatusSkipped})
				}
				break
			}
			continue
		}
		results = append(results, NewSuccessResult(id, res))
	}

	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(id string, result any) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: result,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
