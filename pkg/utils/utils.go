package utils

import (
	"encoding/json"
	"os"
	"strings"
	"unicode/utf8"
)

// PrettyJSON marshals with indentation.
func PrettyJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}

// LimitStr returns a string truncated to n runes with "..." appended if longer.
func LimitStr(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return s[:byteIndexAtRunePos(s, n)] + "..."
}

// LimitRunes cuts s to at most n runes, preferring the last word boundary so
// prompts do not end mid-word.
func LimitRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := byteIndexAtRunePos(s, n)
	if i := strings.LastIndexAny(s[:cut], " \t\n"); i > cut/2 && s[cut] != ' ' {
		cut = i
	}
	return strings.TrimSpace(s[:cut])
}

func byteIndexAtRunePos(s string, pos int) int {
	if pos <= 0 {
		return 0
	}
	i := 0
	for pos > 0 && i < len(s) {
		_, sz := utf8.DecodeRuneInString(s[i:])
		i += sz
		pos--
	}
	return i
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
