package session

import (
	"bytes"
	"errors"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var ErrNotObject = errors.New("knowledge base must be a JSON object")

// Record is one named entry of a knowledge base.
type Record struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// KnowledgeBase maps names to descriptions and remembers the order in which
// names were first added. Overwriting a name keeps its original position.
//
// The zero value is an empty, ready to use knowledge base. Copies share the
// underlying storage; use Clone before mutating a base you do not own.
type KnowledgeBase struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewKnowledgeBase builds a knowledge base from records in order.
func NewKnowledgeBase(records ...Record) KnowledgeBase {
	var kb KnowledgeBase
	for _, r := range records {
		kb.Set(r.Name, r.Description)
	}
	return kb
}

func (kb KnowledgeBase) Len() int {
	if kb.m == nil {
		return 0
	}
	return kb.m.Len()
}

func (kb KnowledgeBase) Get(name string) (string, bool) {
	if kb.m == nil {
		return "", false
	}
	return kb.m.Get(name)
}

// Set stores description under name, returning true when it replaced an
// existing entry.
func (kb *KnowledgeBase) Set(name, description string) bool {
	if kb.m == nil {
		kb.m = orderedmap.New[string, string]()
	}
	_, present := kb.m.Set(name, description)
	return present
}

// Latest returns the most recently added record.
func (kb KnowledgeBase) Latest() (Record, bool) {
	if kb.m == nil {
		return Record{}, false
	}
	p := kb.m.Newest()
	if p == nil {
		return Record{}, false
	}
	return Record{Name: p.Key, Description: p.Value}, true
}

// Records lists the entries from oldest to newest.
func (kb KnowledgeBase) Records() []Record {
	if kb.Len() == 0 {
		return nil
	}
	out := make([]Record, 0, kb.m.Len())
	for p := kb.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, Record{Name: p.Key, Description: p.Value})
	}
	return out
}

// Names lists the keys from oldest to newest.
func (kb KnowledgeBase) Names() []string {
	records := kb.Records()
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}

func (kb KnowledgeBase) Clone() KnowledgeBase {
	return NewKnowledgeBase(kb.Records()...)
}

// Equal reports whether both bases hold the same records in the same order.
func (kb KnowledgeBase) Equal(other KnowledgeBase) bool {
	a, b := kb.Records(), other.Records()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MarshalJSON writes the base as a JSON object in insertion order. An empty
// base is written as {} rather than null so clients can store it as-is.
func (kb KnowledgeBase) MarshalJSON() ([]byte, error) {
	if kb.Len() == 0 {
		return []byte("{}"), nil
	}
	return kb.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object keeping key order. Entries with a blank
// name or description are skipped so every stored record is usable.
func (kb *KnowledgeBase) UnmarshalJSON(data []byte) error {
	kb.m = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '{' {
		return ErrNotObject
	}

	raw := orderedmap.New[string, string]()
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	for p := raw.Oldest(); p != nil; p = p.Next() {
		name := strings.TrimSpace(p.Key)
		desc := strings.TrimSpace(p.Value)
		if name == "" || desc == "" {
			continue
		}
		kb.Set(name, desc)
	}
	return nil
}
