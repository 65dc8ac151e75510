package merganser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/xanzy/go-gitlab"
)

// MRFilter decides via a jq query if the bot processes a merge request.
// The query runs on the JSON representation of the merge request and must
// evaluate to exactly one boolean.
type MRFilter struct {
	query *gojq.Query
}

// NewMRFilter compiles the jq query.
func NewMRFilter(jqQuery string) (*MRFilter, error) {
	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, err
	}

	return &MRFilter{query: query}, nil
}

// String returns the jq query of the filter.
func (f *MRFilter) String() string {
	return f.query.String()
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}

// Match returns true when the query of the filter evaluates to true for
// the merge request. A nil filter matches every merge request.
func (f *MRFilter) Match(ctx context.Context, mr *gitlab.MergeRequest) (bool, error) {
	if f == nil {
		return true, nil
	}

	if mr == nil {
		return false, errors.New("merge request is nil")
	}

	data, err := json.Marshal(mr)
	if err != nil {
		return false, fmt.Errorf("marshaling merge request to json failed: %w", err)
	}

	var mrUn any
	if err := json.Unmarshal(data, &mrUn); err != nil {
		return false, fmt.Errorf("unmarshaling json failed: %w", err)
	}

	result, errs := goJQIterToSlice(f.query.RunWithContext(ctx, mrUn))
	if len(errs) != 0 {
		return false, fmt.Errorf("json query returned errors, query: %q, errors: %s", f.query.String(), errString(errs))
	}

	if len(result) == 0 {
		return false, fmt.Errorf("json query returned 0 results, expected 1, query: %q", f.query.String())
	}

	if len(result) > 1 {
		return false, fmt.Errorf("json query returned multiple results, expected 1, query: %q, result: '%+v'", f.query.String(), result)
	}

	switch val := result[0].(type) {
	case error:
		return false, val

	case bool:
		return val, nil

	default:
		return false, fmt.Errorf(
			"json query returned non-bool result: %+v (%T), query: %q",
			result, result, f.query.String(),
		)
	}
}
