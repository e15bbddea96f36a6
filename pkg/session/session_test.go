package session_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/pkg/session"
)

func character(name, desc string) string {
	return fmt.Sprintf(`<character_description name="%s">%s</character_description>`, name, desc)
}

func setting(name, desc string) string {
	return fmt.Sprintf(`<setting_description name="%s">%s</setting_description>`, name, desc)
}

func TestExtract_Counts(t *testing.T) {
	raw := "The gate creaks open. " +
		character("Kael", "tall, scarred, blue eyes") +
		" **Kael** nods. " +
		character("Mira", "small, freckled, red braid") +
		setting("Gatehouse", "dusk, torchlight, mossy stone") +
		" They step inside."

	ex := session.Extract(raw)

	assert.Equal(t, []string{"Kael", "Mira"}, ex.Characters.Names())
	assert.Equal(t, []string{"Gatehouse"}, ex.Settings.Names())
	desc, ok := ex.Characters.Get("Kael")
	require.True(t, ok)
	assert.Equal(t, "tall, scarred, blue eyes", desc)
	assert.Empty(t, ex.Rejected)
}

func TestExtract_LastWriteWins(t *testing.T) {
	raw := character("Kael", "young") + " later " + character("Mira", "quiet") + character("Kael", "older, grey beard")

	ex := session.Extract(raw)

	assert.Equal(t, 2, ex.Characters.Len())
	desc, _ := ex.Characters.Get("Kael")
	assert.Equal(t, "older, grey beard", desc)
	assert.Equal(t, []string{"Kael", "Mira"}, ex.Characters.Names(), "overwrite keeps first position")
}

func TestExtract_Tolerant(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		characters []string
		rejected   int
	}{
		{
			name:       "single quotes and spacing",
			raw:        `<character_description  name = 'Kael' >tall</character_description>`,
			characters: []string{"Kael"},
		},
		{
			name:     "unterminated",
			raw:      `Hi <character_description name="Kael">tall and then nothing`,
			rejected: 1,
		},
		{
			name:       "nested opening resumes at inner tag",
			raw:        `<character_description name="A">half ` + character("B", "whole"),
			characters: []string{"B"},
			rejected:   1,
		},
		{
			name:     "missing name",
			raw:      `<character_description>tall</character_description>`,
			rejected: 1,
		},
		{
			name:     "mismatched close",
			raw:      `<character_description name="A">tall</setting_description>`,
			rejected: 1,
		},
		{
			name:     "stray close",
			raw:      `text</character_description> more`,
			rejected: 1,
		},
		{
			name:     "empty description",
			raw:      character("A", "   "),
			rejected: 1,
		},
		{
			name:       "self-closing is dropped alone",
			raw:        `<character_description name="A"/> then ` + character("B", "b"),
			characters: []string{"B"},
			rejected:   1,
		},
		{
			name: "word that starts with tag name",
			raw:  `<character_descriptions are fun>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := session.Extract(tt.raw)
			if tt.characters == nil {
				assert.Zero(t, ex.Characters.Len())
			} else {
				assert.Equal(t, tt.characters, ex.Characters.Names())
			}
			assert.Len(t, ex.Rejected, tt.rejected)
		})
	}
}

func TestExtract_Caps(t *testing.T) {
	var b strings.Builder
	for i := 0; i < session.MaxRecords+3; i++ {
		b.WriteString(character(fmt.Sprintf("C%d", i), "desc"))
	}
	b.WriteString(character("C0", "updated"))
	b.WriteString(character(strings.Repeat("n", session.MaxNameRunes+10), strings.Repeat("é", session.MaxDescriptionRunes+10)))

	ex := session.Extract(b.String())

	assert.Equal(t, session.MaxRecords, ex.Characters.Len())
	desc, _ := ex.Characters.Get("C0")
	assert.Equal(t, "updated", desc, "existing names may still be overwritten at the cap")
	assert.Len(t, ex.Rejected, 4)
	for _, r := range ex.Rejected {
		assert.Equal(t, "too many records", r.Reason)
	}

	one := session.Extract(character(strings.Repeat("n", session.MaxNameRunes+10), strings.Repeat("é", session.MaxDescriptionRunes+10)))
	rec, ok := one.Characters.Latest()
	require.True(t, ok)
	assert.Equal(t, session.MaxNameRunes, len([]rune(rec.Name)))
	assert.Equal(t, session.MaxDescriptionRunes, len([]rune(rec.Description)))
}

func TestSanitize(t *testing.T) {
	t.Run("kael example", func(t *testing.T) {
		raw := `Hello. <character_description name="Kael">tall, scarred, blue eyes</character_description>`
		assert.Equal(t, "Hello.", session.Sanitize(raw))
	})

	t.Run("no spans is unchanged modulo trim", func(t *testing.T) {
		raw := "  **Luna** giggles.\n\nThe forest hums.  "
		assert.Equal(t, strings.TrimSpace(raw), session.Sanitize(raw))
	})

	t.Run("removes exactly the spans", func(t *testing.T) {
		raw := "A " + character("X", "x") + "B " + setting("Y", "y") + "C **Kael**"
		assert.Equal(t, "A B C **Kael**", session.Sanitize(raw))
	})

	t.Run("garbled close ends the annotation", func(t *testing.T) {
		raw := `A <character_description name="A">x</character_desc> She smiles. ` +
			setting("Hall", "dark") + " End."
		p := session.Parse(raw)
		assert.Equal(t, "A  She smiles.  End.", p.Text)
		assert.Equal(t, []string{"Hall"}, p.Settings.Names())
		require.Len(t, p.Rejected, 1)
		assert.Equal(t, "unterminated", p.Rejected[0].Reason)
	})

	t.Run("blank line ends the annotation", func(t *testing.T) {
		raw := "Dawn.\n<character_description name=\"A\">half a thought\n\nThe bells ring."
		assert.Equal(t, "Dawn.\n\n\nThe bells ring.", session.Sanitize(raw))
	})

	t.Run("malformed fragments never leak", func(t *testing.T) {
		raw := `Run! </setting_description><character_description name="Z">half a description`
		assert.Equal(t, "Run!", session.Sanitize(raw))
	})
}

func TestParse(t *testing.T) {
	raw := "Hello. " + character("Kael", "tall")
	p := session.Parse(raw)
	assert.Equal(t, "Hello.", p.Text)
	assert.Equal(t, []string{"Kael"}, p.Characters.Names())
}

func TestMerge(t *testing.T) {
	prior := session.NewKnowledgeBase(
		session.Record{Name: "Kael", Description: "young"},
		session.Record{Name: "Mira", Description: "quiet"},
	)
	next := session.NewKnowledgeBase(
		session.Record{Name: "Orin", Description: "bald"},
		session.Record{Name: "Kael", Description: "older"},
	)

	merged := session.Merge(prior, next)

	assert.Equal(t, []session.Record{
		{Name: "Kael", Description: "older"},
		{Name: "Mira", Description: "quiet"},
		{Name: "Orin", Description: "bald"},
	}, merged.Records())

	latest, ok := merged.Latest()
	require.True(t, ok)
	assert.Equal(t, "Orin", latest.Name)

	// inputs untouched
	d, _ := prior.Get("Kael")
	assert.Equal(t, "young", d)
	assert.Equal(t, 2, next.Len())

	assert.True(t, session.Merge(merged, session.KnowledgeBase{}).Equal(merged))
	assert.True(t, session.Merge(session.KnowledgeBase{}, session.KnowledgeBase{}).Equal(session.KnowledgeBase{}))
}

func TestKnowledgeBase_JSON(t *testing.T) {
	var kb session.KnowledgeBase
	err := json.Unmarshal([]byte(`{"Zed":"tall","Amy":"  short ","":"x","Bo":""}`), &kb)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zed", "Amy"}, kb.Names())

	out, err := json.Marshal(kb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Zed":"tall","Amy":"short"}`, string(out))
	assert.True(t, strings.Index(string(out), "Zed") < strings.Index(string(out), "Amy"))

	var empty struct {
		Characters session.KnowledgeBase `json:"characters"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"characters":null}`), &empty))
	assert.Zero(t, empty.Characters.Len())
	out, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"characters":{}}`, string(out))

	err = json.Unmarshal([]byte(`["a"]`), &kb)
	assert.ErrorIs(t, err, session.ErrNotObject)
}
