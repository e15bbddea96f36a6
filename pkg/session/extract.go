package session

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxRecords          = 32
	MaxNameRunes        = 120
	MaxDescriptionRunes = 2000
)

// Rejection describes an annotation that was dropped instead of stored.
type Rejection struct {
	Kind   Kind
	Name   string
	Offset int
	Reason string
}

// Extraction holds the records found in one narration.
type Extraction struct {
	Characters KnowledgeBase
	Settings   KnowledgeBase
	Rejected   []Rejection
}

// Parsed is the result of splitting raw narration into its display text and
// its annotations.
type Parsed struct {
	Extraction
	Text string
}

// Parse scans raw once and returns both the sanitized narration and the
// extracted records.
func Parse(raw string) Parsed {
	spans := scan(raw)
	return Parsed{
		Extraction: extract(spans),
		Text:       sanitize(raw, spans),
	}
}

// Extract collects every well-formed character and setting annotation in raw.
// A later annotation with the same name replaces an earlier one.
func Extract(raw string) Extraction {
	return extract(scan(raw))
}

// Sanitize removes every annotation, well-formed or not, and trims the
// result. Everything outside annotations is left as written.
func Sanitize(raw string) string {
	return sanitize(raw, scan(raw))
}

func extract(spans []span) Extraction {
	var ex Extraction
	for _, s := range spans {
		if s.malformed != "" {
			ex.Rejected = append(ex.Rejected, Rejection{Kind: s.kind, Offset: s.start, Reason: s.malformed})
			continue
		}

		name := truncateRunes(strings.TrimSpace(s.name), MaxNameRunes)
		desc := truncateRunes(strings.TrimSpace(s.description), MaxDescriptionRunes)
		reject := func(reason string) {
			ex.Rejected = append(ex.Rejected, Rejection{Kind: s.kind, Name: name, Offset: s.start, Reason: reason})
		}
		if name == "" {
			reject("empty name")
			continue
		}
		if desc == "" {
			reject("empty description")
			continue
		}

		kb := &ex.Characters
		if s.kind == KindSetting {
			kb = &ex.Settings
		}
		if _, exists := kb.Get(name); !exists && kb.Len() >= MaxRecords {
			reject("too many records")
			continue
		}
		kb.Set(name, desc)
	}
	return ex
}

func sanitize(raw string, spans []span) string {
	if len(spans) == 0 {
		return strings.TrimSpace(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	at := 0
	for _, s := range spans {
		b.WriteString(raw[at:s.start])
		at = s.end
	}
	b.WriteString(raw[at:])
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for count := 0; count < n; count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return strings.TrimSpace(s[:i])
}

// Merge returns prior with every entry of next applied on top. Names already
// in prior keep their position; new names are appended in next's order.
// Neither input is modified.
func Merge(prior, next KnowledgeBase) KnowledgeBase {
	merged := prior.Clone()
	for _, r := range next.Records() {
		merged.Set(r.Name, r.Description)
	}
	return merged
}
