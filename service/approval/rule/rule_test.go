package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	type testCase struct {
		name       string
		input      string
		expectErr  bool
		conditions int
	}

	tests := []testCase{
		{name: "empty", input: "   ", conditions: 0},
		{name: "numeric", input: "score >= 0.9", conditions: 1},
		{name: "string single quoted", input: "company == 'Acme'", conditions: 1},
		{name: "string double quoted", input: `source == "referral"`, conditions: 1},
		{name: "bool", input: "remote == true", conditions: 1},
		{name: "conjunction", input: "score >= 0.9 && remote == true && salary > 100000", conditions: 3},
		{name: "nested field", input: "job.score > 0.5", conditions: 1},
		{name: "negative number", input: "delta > -1.5", conditions: 1},
		{name: "missing literal", input: "score >=", expectErr: true},
		{name: "missing operator", input: "score 0.9", expectErr: true},
		{name: "trailing garbage", input: "score > 1 extra", expectErr: true},
		{name: "disjunction unsupported", input: "a == 1 || b == 2", expectErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, parsed.Conditions(), tc.conditions)
		})
	}
}

func TestEval(t *testing.T) {
	payload := map[string]interface{}{
		"score":  0.95,
		"remote": true,
		"source": "referral",
		"salary": 120000,
		"job": map[string]interface{}{
			"company": "Acme",
		},
	}

	type testCase struct {
		name   string
		rule   string
		expect bool
	}

	tests := []testCase{
		{name: "numeric ge holds", rule: "score >= 0.9", expect: true},
		{name: "numeric gt fails", rule: "score > 0.95", expect: false},
		{name: "int compared as number", rule: "salary >= 100000", expect: true},
		{name: "bool", rule: "remote == true", expect: true},
		{name: "bool ne", rule: "remote != true", expect: false},
		{name: "string eq", rule: "source == 'referral'", expect: true},
		{name: "nested field", rule: "job.company == 'Acme'", expect: true},
		{name: "missing field is false", rule: "priority == 'high'", expect: false},
		{name: "conjunction all hold", rule: "score >= 0.9 && remote == true", expect: true},
		{name: "conjunction one fails", rule: "score >= 0.9 && source == 'board'", expect: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.rule)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, parsed.Eval(payload))
		})
	}
}

func TestEvalEmptyRule(t *testing.T) {
	parsed, err := Parse("")
	require.NoError(t, err)
	require.Nil(t, parsed)
	// nil rule never auto-approves
	assert.False(t, parsed.Eval(map[string]interface{}{"any": 1}))
}
