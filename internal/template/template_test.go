package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	vars := Vars{FollowerHandle: "balajis"}
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"no variables", "Buy Bitcoin!", "Buy Bitcoin!"},
		{"handle", "https://x.io/signup?ref=${followerTwitterHandle}", "https://x.io/signup?ref=balajis"},
		{"trims whitespace", "hi ${ followerTwitterHandle }!", "hi balajis!"},
		{"repeated", "${followerTwitterHandle}/${followerTwitterHandle}", "balajis/balajis"},
		{"escaped", `literal \${followerTwitterHandle}`, "literal ${followerTwitterHandle}"},
		{"lone dollar", "costs $5", "costs $5"},
		{"unclosed", "oops ${followerTwitterHandle", "oops ${followerTwitterHandle"},
		{"trailing dollar", "cash$", "cash$"},
		{"multibyte", "héllo ${followerTwitterHandle} ✓", "héllo balajis ✓"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.message, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandUnknownVariable(t *testing.T) {
	_, err := Expand("hello ${name}", Vars{FollowerHandle: "a"})
	assert.ErrorIs(t, err, ErrUnknownVariable)

	_, err = Expand("hello ${}", Vars{})
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("hi ${followerTwitterHandle}"))
	assert.ErrorIs(t, Validate("hi ${nope}"), ErrUnknownVariable)
}
