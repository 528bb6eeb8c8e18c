package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateContentShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "hello", TruncateContent("hello"))
	assert.Equal(t, strings.Repeat("a", MaxContentLength), TruncateContent(strings.Repeat("a", MaxContentLength)))
}

func TestTruncateContentCountsRunesNotBytes(t *testing.T) {
	// 600 two-byte runes is 1200 bytes but only 600 chars, under the cap.
	text := strings.Repeat("é", 600)
	assert.Equal(t, text, TruncateContent(text))
}

func TestTruncateContentCapsAtRuneBoundary(t *testing.T) {
	got := TruncateContent(strings.Repeat("é", MaxContentLength+50))
	require.True(t, strings.HasSuffix(got, "..."))
	kept := strings.TrimSuffix(got, "...")
	assert.Equal(t, MaxContentLength, utf8.RuneCountInString(kept))
	assert.True(t, utf8.ValidString(got))
}

func TestTruncateContentASCII(t *testing.T) {
	got := TruncateContent(strings.Repeat("a", MaxContentLength+3))
	assert.Equal(t, strings.Repeat("a", MaxContentLength)+"...", got)
}
