package Outbreaks

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var ErrUnparseable = errors.New("response is not a city to condition count table")

// objectBlock spans from the first '{' to the last '}', which skips prose and
// markdown fences around the JSON.
var objectBlock = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseTable reads generated text of the form {"city": {"condition": count}}.
// It first parses the whole text and then the embedded object block. Keys are
// normalized, counts may be numbers or numeric strings, and non-positive or
// non-numeric counts are dropped.
func ParseTable(text string) (Table, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseable)
	}
	if table, err := decodeTable(text); err == nil {
		return table, nil
	}

	block := objectBlock.FindString(text)
	if block == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}
	table, err := decodeTable(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return table, nil
}

// decodeTable accepts {} as an empty table. A non-empty object must hold at
// least one city whose value is a condition object.
func decodeTable(s string) (Table, error) {
	var cities map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &cities); err != nil {
		return nil, err
	}
	if cities == nil {
		return nil, errors.New("null response")
	}

	table := Table{}
	shaped := false
	for city, raw := range cities {
		var diseases map[string]any
		if err := json.Unmarshal(raw, &diseases); err != nil || diseases == nil {
			continue
		}
		shaped = true
		for disease, v := range diseases {
			if n, ok := count(v); ok {
				table.add(Normalize(city), Normalize(disease), n)
			}
		}
	}
	if len(cities) > 0 && !shaped {
		return nil, errors.New("no city maps to a condition object")
	}
	return table, nil
}

func count(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0, false
	}
	n := int(math.Round(f))
	return n, n > 0
}
