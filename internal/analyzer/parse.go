package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/deusflow/aiinsight/internal/news"
)

const (
	summaryItems = 3
	tagItems     = 3
	minScore     = 1
	maxScore     = 10
)

var requiredFields = []string{"title", "summary", "tags", "importance_score"}

// Parse decodes a model response into an Analysis. The result is either
// fully valid or an error; nothing partial is returned.
func Parse(raw string) (news.Analysis, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil {
		return news.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if fields == nil {
		return news.Analysis{}, fmt.Errorf("%w: top level is null", ErrMalformedJSON)
	}

	for _, name := range requiredFields {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return news.Analysis{}, fmt.Errorf("%w: missing field %q", ErrSchema, name)
		}
	}

	var out news.Analysis
	if err := json.Unmarshal(fields["title"], &out.Title); err != nil {
		return news.Analysis{}, fmt.Errorf("%w: title: %v", ErrSchema, err)
	}
	out.Title = strings.TrimSpace(out.Title)

	summary, err := stringList(fields["summary"], "summary", summaryItems)
	if err != nil {
		return news.Analysis{}, err
	}
	tags, err := stringList(fields["tags"], "tags", tagItems)
	if err != nil {
		return news.Analysis{}, err
	}
	out.Summary, out.Tags = summary, tags

	score, err := integerScore(fields["importance_score"])
	if err != nil {
		return news.Analysis{}, err
	}
	out.ImportanceScore = score
	return out, nil
}

func stringList(raw json.RawMessage, name string, want int) ([]string, error) {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchema, name, err)
	}
	if len(items) != want {
		return nil, fmt.Errorf("%w: %s has %d items, want %d", ErrSchema, name, len(items), want)
	}
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items, nil
}

// integerScore accepts a JSON number with no fractional part.
func integerScore(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, fmt.Errorf("%w: importance_score is not a number", ErrSchema)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: importance_score: %v", ErrSchema, err)
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: importance_score %q", ErrSchema, n.String())
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: importance_score %s is not an integer", ErrSchema, n.String())
	}
	if f < minScore || f > maxScore {
		return 0, fmt.Errorf("%w: %s not in [%d,%d]", ErrScoreRange, n.String(), minScore, maxScore)
	}
	return int(f), nil
}
