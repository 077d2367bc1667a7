package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := Wrap(Mark(New("column Q2 missing"), ErrInvalidInput), "reading survey.csv")
	assert.True(t, IsInvalidInput(err))
	assert.False(t, IsNotFound(err))

	nf := Wrapf(ErrNotFound, "session %s", "abc")
	assert.True(t, IsNotFound(nf))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))

	err := WithHint(New("no scene generated"), "run generate first")
	msg := UserMessage(err)
	assert.Contains(t, msg, "no scene generated")
	assert.Contains(t, msg, "hint: run generate first")
}
