package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

// NumTokens counts tokens the way chat models roughly do. The encoding is
// loaded once per process.
func NumTokens(text string) (int, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.EncodingForModel("gpt-4-0613")
	})
	if encodingErr != nil {
		return 0, encodingErr
	}

	return len(encoding.Encode(text, nil, nil)), nil
}
