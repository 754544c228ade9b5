package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_IsAllowed(t *testing.T) {
	testCases := []struct {
		description string
		policy      *Policy
		action      string
		expect      bool
	}{
		{
			description: "nil policy allows everything",
			policy:      nil,
			action:      "search.find",
			expect:      true,
		},
		{
			description: "empty lists allow everything",
			policy:      &Policy{Mode: ModeAuto},
			action:      "search.find",
			expect:      true,
		},
		{
			description: "block list wins over allow list",
			policy: &Policy{
				AllowList: []string{"submit.apply"},
				BlockList: []string{"submit.apply"},
			},
			action: "submit.apply",
			expect: false,
		},
		{
			description: "allow list restricts to listed actions",
			policy: &Policy{
				AllowList: []string{"search.find", "rank.rank"},
			},
			action: "submit.apply",
			expect: false,
		},
		{
			description: "allow list match is case insensitive",
			policy: &Policy{
				AllowList: []string{"Search.Find"},
			},
			action: "search.find",
			expect: true,
		},
		{
			description: "block list match is case insensitive",
			policy: &Policy{
				BlockList: []string{"Submit.Apply"},
			},
			action: "submit.apply",
			expect: false,
		},
	}

	for _, testCase := range testCases {
		actual := testCase.policy.IsAllowed(testCase.action)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestPolicy_ContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(nil))

	p := &Policy{Mode: ModeDeny}
	ctx := WithPolicy(context.Background(), p)
	assert.Same(t, p, FromContext(ctx))
}

func TestPolicy_ConfigRoundTrip(t *testing.T) {
	assert.Nil(t, ToConfig(nil))
	assert.Nil(t, FromConfig(nil))

	p := &Policy{Mode: ModeAsk, AllowList: []string{"a.b"}, BlockList: []string{"c.d"}}
	restored := FromConfig(ToConfig(p))
	assert.Equal(t, p.Mode, restored.Mode)
	assert.Equal(t, p.AllowList, restored.AllowList)
	assert.Equal(t, p.BlockList, restored.BlockList)
	assert.Nil(t, restored.Ask)
}
