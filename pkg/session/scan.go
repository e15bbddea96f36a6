package session

import (
	"strings"
)

// Kind identifies which knowledge base an annotation feeds.
type Kind int

const (
	KindCharacter Kind = iota
	KindSetting
)

const (
	CharacterTag = "character_description"
	SettingTag   = "setting_description"
)

func (k Kind) Tag() string {
	if k == KindSetting {
		return SettingTag
	}
	return CharacterTag
}

func (k Kind) String() string {
	if k == KindSetting {
		return "setting"
	}
	return "character"
}

// span is a region of raw narration that belongs to an annotation. Well-formed
// spans carry a name and description; malformed ones only mark text that must
// not reach the reader.
type span struct {
	start, end  int
	kind        Kind
	name        string
	description string
	malformed   string
}

type tagHit struct {
	pos     int
	kind    Kind
	closing bool
}

// tag tokens searched for by nextTag, in a fixed order so ties cannot occur.
var tagTokens = []struct {
	text    string
	kind    Kind
	closing bool
}{
	{"<" + CharacterTag, KindCharacter, false},
	{"<" + SettingTag, KindSetting, false},
	{"</" + CharacterTag + ">", KindCharacter, true},
	{"</" + SettingTag + ">", KindSetting, true},
}

// nextTag finds the earliest annotation tag at or after from. Opening tokens
// must be followed by whitespace, '>' or '/' so words that merely start with
// a tag name are not treated as tags.
func nextTag(raw string, from int) (tagHit, bool) {
	best := tagHit{pos: -1}
	for _, tok := range tagTokens {
		at := from
		for at <= len(raw) {
			i := strings.Index(raw[at:], tok.text)
			if i < 0 {
				break
			}
			i += at
			if !tok.closing && !tagBoundary(raw, i+len(tok.text)) {
				at = i + 1
				continue
			}
			if best.pos < 0 || i < best.pos {
				best = tagHit{pos: i, kind: tok.kind, closing: tok.closing}
			}
			break
		}
	}
	return best, best.pos >= 0
}

func tagBoundary(raw string, i int) bool {
	if i >= len(raw) {
		return true
	}
	switch raw[i] {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}

func closingTag(k Kind) string {
	return "</" + k.Tag() + ">"
}

// scan walks raw narration once and returns every annotation span in order.
func scan(raw string) []span {
	var spans []span
	at := 0
	for {
		hit, ok := nextTag(raw, at)
		if !ok {
			return spans
		}

		if hit.closing {
			end := hit.pos + len(closingTag(hit.kind))
			spans = append(spans, span{start: hit.pos, end: end, kind: hit.kind, malformed: "stray closing tag"})
			at = end
			continue
		}

		bodyStart, name, reason := parseOpenTag(raw, hit.pos+1+len(hit.kind.Tag()))
		if reason != "" {
			end := bodyStart
			if end == 0 {
				// drop the fragment up to the next tag, or through it if it closes
				end = len(raw)
				if next, ok := nextTag(raw, hit.pos+1); ok {
					end = next.pos
					if next.closing {
						end += len(closingTag(next.kind))
					}
				}
			}
			spans = append(spans, span{start: hit.pos, end: end, kind: hit.kind, malformed: reason})
			at = end
			continue
		}

		next, ok := nextTag(raw, bodyStart)
		switch {
		case !ok:
			end := unterminatedEnd(raw, bodyStart, len(raw))
			spans = append(spans, span{start: hit.pos, end: end, kind: hit.kind, malformed: "unterminated"})
			at = end
		case next.closing && next.kind == hit.kind:
			end := next.pos + len(closingTag(next.kind))
			spans = append(spans, span{
				start:       hit.pos,
				end:         end,
				kind:        hit.kind,
				name:        name,
				description: raw[bodyStart:next.pos],
			})
			at = end
		case next.closing:
			// closed with the other kind's tag; swallow both
			end := next.pos + len(closingTag(next.kind))
			spans = append(spans, span{start: hit.pos, end: end, kind: hit.kind, malformed: "mismatched closing tag"})
			at = end
		default:
			end := unterminatedEnd(raw, bodyStart, next.pos)
			spans = append(spans, span{start: hit.pos, end: end, kind: hit.kind, malformed: "unterminated"})
			at = end
		}
	}
}

// unterminatedEnd bounds an annotation whose closing tag never came. The
// body ends at limit, at the first blank line, or just after a garbled
// closing tag such as </character_desc>, whichever is first. Prose past that
// point is kept.
func unterminatedEnd(raw string, bodyStart, limit int) int {
	body := raw[bodyStart:limit]
	end := len(body)
	if i := strings.Index(body, "\n\n"); i >= 0 {
		end = i
	}
	if i := strings.Index(body[:end], "</"); i >= 0 {
		end = i
		if j := strings.IndexAny(body[i:], ">\n"); j >= 0 && body[i+j] == '>' {
			end = i + j + 1
		}
	}
	return bodyStart + end
}

// parseOpenTag reads the attributes of an opening tag starting at i (just
// past the tag name) and returns the index after '>' and the name attribute.
// A non-empty reason means the tag could not be parsed; the returned index is
// then only set when the end of the bad tag is known.
func parseOpenTag(raw string, i int) (int, string, string) {
	var name string
	var found bool
	for {
		i = skipSpace(raw, i)
		if i >= len(raw) {
			return 0, "", "unterminated opening tag"
		}
		switch raw[i] {
		case '>':
			if !found {
				return 0, "", "missing name attribute"
			}
			return i + 1, name, ""
		case '/':
			if i+1 < len(raw) && raw[i+1] == '>' {
				return i + 2, "", "self-closing tag"
			}
			return 0, "", "malformed attribute"
		case '<':
			return 0, "", "unterminated opening tag"
		}

		keyStart := i
		for i < len(raw) && isAttrChar(raw[i]) {
			i++
		}
		if i == keyStart {
			return 0, "", "malformed attribute"
		}
		key := raw[keyStart:i]

		i = skipSpace(raw, i)
		if i >= len(raw) || raw[i] != '=' {
			return 0, "", "malformed attribute"
		}
		i = skipSpace(raw, i+1)
		if i >= len(raw) || (raw[i] != '"' && raw[i] != '\'') {
			return 0, "", "unquoted attribute"
		}
		quote := raw[i]
		end := strings.IndexByte(raw[i+1:], quote)
		if end < 0 {
			return 0, "", "unterminated attribute"
		}
		value := raw[i+1 : i+1+end]
		i = i + 1 + end + 1

		if strings.EqualFold(key, "name") {
			name, found = value, true
		}
	}
}

func skipSpace(raw string, i int) int {
	for i < len(raw) {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func isAttrChar(c byte) bool {
	return c == '_' || c == '-' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
