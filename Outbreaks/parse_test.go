package Outbreaks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Table
	}{
		{
			name: "plain json",
			text: `{"Delhi": {"Flu": 2}, "mumbai": {"dengue": 1}}`,
			want: Table{"delhi": {"flu": 2}, "mumbai": {"dengue": 1}},
		},
		{
			name: "fenced with prose",
			text: "Here is the data:\n```json\n{\"pune\": {\"malaria\": 3}}\n```\nStay safe!",
			want: Table{"pune": {"malaria": 3}},
		},
		{
			name: "string and fractional counts",
			text: `{"pune": {"malaria": "2", "flu": 1.6, "typhoid": "2.6", "cough": 0.4, "cold": 0, "bad": "many"}}`,
			want: Table{"pune": {"malaria": 2, "flu": 2, "typhoid": 3}},
		},
		{
			name: "keys merge after normalizing",
			text: `{"Delhi": {"Flu": 1}, " delhi": {"flu ": 2}}`,
			want: Table{"delhi": {"flu": 3}},
		},
		{
			name: "non object city skipped next to a valid one",
			text: `{"delhi": 4, "agra": {"flu": 1}}`,
			want: Table{"agra": {"flu": 1}},
		},
		{
			name: "empty object",
			text: `{}`,
			want: Table{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTable(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTableRejectsGarbage(t *testing.T) {
	for _, text := range []string{"", "   ", "no data today", "[1,2,3]", "{not json}", "{\"a\": {\"b\": 1}"} {
		_, err := ParseTable(text)
		assert.ErrorIs(t, err, ErrUnparseable, text)
	}
}

func TestParseTableRejectsWrongShapeObjects(t *testing.T) {
	for _, text := range []string{
		"null",
		`{"error": "quota exceeded"}`,
		`{"delhi": 4}`,
		`{"delhi": null, "agra": [1]}`,
		"The model said: {\"error\": \"model overloaded\"}",
	} {
		_, err := ParseTable(text)
		assert.ErrorIs(t, err, ErrUnparseable, text)
	}
}
