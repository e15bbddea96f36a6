package inference

import (
	"luna/pkg/schema"
)

// TokenCounter counts the tokens in a piece of text.
type TokenCounter func(text string) (int, error)

// TrimHistory drops the oldest turns until the rest fits in budget tokens.
// The newest turn is always kept. A budget of zero or less disables trimming,
// and so does a counting error, which is returned alongside the full history.
func TrimHistory(history []schema.Message, budget int, count TokenCounter) ([]schema.Message, int, error) {
	if budget <= 0 || count == nil || len(history) == 0 {
		return history, 0, nil
	}

	sizes := make([]int, len(history))
	total := 0
	for i, m := range history {
		n, err := count(m.Content)
		if err != nil {
			return history, 0, err
		}
		sizes[i] = n
		total += n
	}

	start := 0
	for total > budget && start < len(history)-1 {
		total -= sizes[start]
		start++
	}
	return history[start:], start, nil
}
