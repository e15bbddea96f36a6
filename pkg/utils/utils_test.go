package utils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitRunes(t *testing.T) {
	assert.Equal(t, "short", LimitRunes("short", 10))
	assert.Equal(t, "", LimitRunes("anything", 0))
	assert.Equal(t, "the quick", LimitRunes("the quick brown fox", 12))
	assert.Equal(t, "the quick", LimitRunes("the quick brown fox", 9))
	assert.Equal(t, "ééé", LimitRunes("éééééé", 3))
}

func TestLimitStr(t *testing.T) {
	assert.Equal(t, "abc", LimitStr("abc", 3))
	assert.Equal(t, "ab...", LimitStr("abc", 2))
	assert.Equal(t, "ü...", LimitStr("üü", 1))
}

func TestTokenizeWords(t *testing.T) {
	in := "tall, scarred  blue-eyes!"
	tokens := TokenizeWords(in)
	assert.Equal(t, []string{"tall", ",", " ", "scarred", "  ", "blue-eyes", "!"}, tokens)
	assert.Equal(t, in, strings.Join(tokens, ""))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
}
