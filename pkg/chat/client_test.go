package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortTextUntouched(t *testing.T) {
	chunks := SplitMessage("hello", 1900)
	assert.Equal(t, []string{"hello"}, chunks)
}

func TestSplitMessagePrefersLineBoundaries(t *testing.T) {
	lineA := strings.Repeat("a", 60)
	lineB := strings.Repeat("b", 60)
	text := lineA + "\n" + lineB

	chunks := SplitMessage(text, 100)
	require.Len(t, chunks, 2)
	assert.Equal(t, lineA, chunks[0])
	assert.Equal(t, lineB, chunks[1])
}

func TestSplitMessageHardSplitWithoutNewlines(t *testing.T) {
	text := strings.Repeat("x", 250)

	chunks := SplitMessage(text, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitMessageEveryChunkWithinLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString(strings.Repeat("word ", 20))
		b.WriteString("\n")
	}

	for _, chunk := range SplitMessage(b.String(), 1900) {
		assert.LessOrEqual(t, len(chunk), 1900)
	}
}

func TestNewClientNilOnEmptyToken(t *testing.T) {
	assert.Nil(t, NewClient(""))
}
